package settings

import (
	"github.com/shopspring/decimal"
)

// Setting keys resolved by the snapshot loader.
const (
	KeyExchangeRate      = "exchange_rate"
	KeyRiskMargin        = "risk_margin"
	KeyPlatformMargin    = "platform_margin"
	KeyPlatformFeeRate   = "platform_fee_rate"
	KeyMemberSavingsRate = "member_savings_rate"
)

// Snapshot is an immutable view of the named numeric settings taken at the
// start of one operation. Callers never share snapshots across operations.
type Snapshot struct {
	ExchangeRate      decimal.Decimal
	RiskMargin        decimal.Decimal
	PlatformMargin    decimal.Decimal
	PlatformFeeRate   decimal.Decimal
	MemberSavingsRate decimal.Decimal
}

// Defaults returns the snapshot used when a key has no stored value.
func Defaults() Snapshot {
	return Snapshot{
		ExchangeRate:      decimal.NewFromFloat(145.0),
		RiskMargin:        decimal.NewFromFloat(0.05),
		PlatformMargin:    decimal.NewFromFloat(0.10),
		PlatformFeeRate:   decimal.NewFromFloat(0.5),
		MemberSavingsRate: decimal.NewFromFloat(0.3),
	}
}
