package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// BulkOrder is the consolidated order snapshot created exactly once when a
// pool finalizes. Taxes stay null until reconciled against customs entries.
type BulkOrder struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PoolID              uuid.UUID             `gorm:"column:pool_id;type:uuid;not null;uniqueIndex"`
	Status              enums.BulkOrderStatus `gorm:"column:status;not null;default:'created'"`
	LogisticsCostCents  int64                 `gorm:"column:logistics_cost_cents;not null"`
	TotalOrderCostCents int64                 `gorm:"column:total_order_cost_cents;not null"`
	PerItemCostSource   decimal.Decimal       `gorm:"column:per_item_cost_source;type:numeric(14,2);not null"`
	ExchangeRate        decimal.Decimal       `gorm:"column:exchange_rate;type:numeric(12,4);not null"`
	TaxesCents          *int64                `gorm:"column:taxes_cents"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
