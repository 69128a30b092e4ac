package models

import (
	"time"

	"github.com/google/uuid"
)

// PoolFinance is the derived financial aggregate, one row per pool. It is
// recomputed from current pool state and never hand-edited after
// finalization.
type PoolFinance struct {
	ID                       uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PoolID                   uuid.UUID  `gorm:"column:pool_id;type:uuid;not null;uniqueIndex"`
	BaseCostPerUnitCents     int64      `gorm:"column:base_cost_per_unit_cents;not null"`
	FixedCostsCents          int64      `gorm:"column:fixed_costs_cents;not null"`
	VariableCostPerUnitCents int64      `gorm:"column:variable_cost_per_unit_cents;not null"`
	BenchmarkPriceCents      int64      `gorm:"column:benchmark_price_cents;not null"`
	TotalRevenueCents        int64      `gorm:"column:total_revenue_cents;not null"`
	TotalCostCents           int64      `gorm:"column:total_cost_cents;not null"`
	GrossProfitCents         int64      `gorm:"column:gross_profit_cents;not null"`
	PlatformEarningCents     int64      `gorm:"column:platform_earning_cents;not null"`
	MemberSavingsCents       int64      `gorm:"column:member_savings_cents;not null"`
	IsFinalized              bool       `gorm:"column:is_finalized;not null;default:false"`
	FinalizedAt              *time.Time `gorm:"column:finalized_at"`
	CreatedAt                time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
