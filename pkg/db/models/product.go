package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product holds the per-pricing-run attributes of an imported good. Catalog
// CRUD is owned elsewhere; the pricing engine reads these fields only.
type Product struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string          `gorm:"column:name;not null"`
	HSCode              string          `gorm:"column:hs_code;not null;index"`
	UnitWeightKG        decimal.Decimal `gorm:"column:unit_weight_kg;type:numeric(12,4);not null"`
	UnitVolumeM3        decimal.Decimal `gorm:"column:unit_volume_m3;type:numeric(12,6);not null"`
	BaseCostCents       int64           `gorm:"column:base_cost_cents;not null"`
	BenchmarkPriceCents int64           `gorm:"column:benchmark_price_cents;not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
