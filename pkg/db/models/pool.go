package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// Pool is the central mutable aggregate: buyers join until the target
// quantity is reached or the deadline passes. The per-unit cost snapshots are
// fixed at creation time from the pricing run that justified the price.
type Pool struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID             uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	RouteID               uuid.UUID        `gorm:"column:route_id;type:uuid;not null"`
	PricingRequestID      *uuid.UUID       `gorm:"column:pricing_request_id;type:uuid"`
	ShipmentID            *uuid.UUID       `gorm:"column:shipment_id;type:uuid"`
	Status                enums.PoolStatus `gorm:"column:status;not null;default:'filling';index"`
	TargetQuantity        int              `gorm:"column:target_quantity;not null"`
	CurrentQuantity       int              `gorm:"column:current_quantity;not null;default:0"`
	UnitPriceCents        int64            `gorm:"column:unit_price_cents;not null"`
	BaseCostPerUnitCents  int64            `gorm:"column:base_cost_per_unit_cents;not null"`
	FixedCostPerUnitCents int64            `gorm:"column:fixed_cost_per_unit_cents;not null"`
	ProgressPercent       decimal.Decimal  `gorm:"column:progress_percent;type:numeric(5,2);not null;default:0"`
	CumulativeValueCents  int64            `gorm:"column:cumulative_value_cents;not null;default:0"`
	Deadline              time.Time        `gorm:"column:deadline;not null"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
