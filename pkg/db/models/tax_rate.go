package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate carries duty/IDF/RDL/VAT rates for a customs classification code
// over an effective date range.
type TaxRate struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HSCode        string          `gorm:"column:hs_code;not null;index"`
	DutyRate      decimal.Decimal `gorm:"column:duty_rate;type:numeric(8,6);not null"`
	IDFRate       decimal.Decimal `gorm:"column:idf_rate;type:numeric(8,6);not null"`
	RDLRate       decimal.Decimal `gorm:"column:rdl_rate;type:numeric(8,6);not null"`
	VATRate       decimal.Decimal `gorm:"column:vat_rate;type:numeric(8,6);not null"`
	EffectiveFrom time.Time       `gorm:"column:effective_from;not null"`
	EffectiveTo   *time.Time      `gorm:"column:effective_to"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
