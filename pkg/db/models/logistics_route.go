package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LogisticsRoute is a shipping container lane with fixed per-shipment costs.
type LogisticsRoute struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string          `gorm:"column:name;not null"`
	Origin               string          `gorm:"column:origin;not null"`
	VolumeCapacityM3     decimal.Decimal `gorm:"column:volume_capacity_m3;type:numeric(12,4);not null"`
	WeightCapacityKG     decimal.Decimal `gorm:"column:weight_capacity_kg;type:numeric(12,2);not null"`
	FreightCents         int64           `gorm:"column:freight_cents;not null"`
	OriginChargesCents   int64           `gorm:"column:origin_charges_cents;not null"`
	PortChargesCents     int64           `gorm:"column:port_charges_cents;not null"`
	ClearingCents        int64           `gorm:"column:clearing_cents;not null"`
	InlandTransportCents int64           `gorm:"column:inland_transport_cents;not null"`
	DepositCreditCents   int64           `gorm:"column:deposit_credit_cents;not null;default:0"`
	MarineInsuranceRate  decimal.Decimal `gorm:"column:marine_insurance_rate;type:numeric(8,6);not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// FixedCostsCents sums the per-shipment container costs net of the deposit
// credit.
func (r LogisticsRoute) FixedCostsCents() int64 {
	return r.FreightCents + r.OriginChargesCents + r.PortChargesCents +
		r.ClearingCents + r.InlandTransportCents - r.DepositCreditCents
}
