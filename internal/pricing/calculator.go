package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
)

var (
	one          = decimal.NewFromInt(1)
	minEarning   = decimal.NewFromFloat(0.01)
	hundredCents = decimal.NewFromInt(100)
)

// RouteCosts carries the container lane figures used by the calculator.
// Monetary fields are KES.
type RouteCosts struct {
	VolumeCapacityM3    decimal.Decimal
	WeightCapacityKG    decimal.Decimal
	FixedCosts          decimal.Decimal
	MarineInsuranceRate decimal.Decimal
}

// TaxSchedule holds the rates applied to the CIF value.
type TaxSchedule struct {
	DutyRate decimal.Decimal
	IDFRate  decimal.Decimal
	RDLRate  decimal.Decimal
	VATRate  decimal.Decimal
}

// Input is one landed-cost calculation. UnitCost is in the source currency
// and is converted through ExchangeRate; BenchmarkPrice is KES.
type Input struct {
	UnitCost       decimal.Decimal
	ExchangeRate   decimal.Decimal
	Quantity       int64
	UnitWeightKG   decimal.Decimal
	UnitVolumeM3   decimal.Decimal
	Route          RouteCosts
	Taxes          TaxSchedule
	PlatformMargin decimal.Decimal
	RiskMargin     decimal.Decimal
	BenchmarkPrice decimal.Decimal
}

// Breakdown is the full per-unit cost decomposition. All monetary figures are
// KES rounded to two decimals; SellingPrice is a whole-shilling ceiling.
type Breakdown struct {
	UnitCostKES         decimal.Decimal `json:"unitCostKes"`
	InsurancePerUnit    decimal.Decimal `json:"insurancePerUnit"`
	CapacityFraction    decimal.Decimal `json:"capacityFraction"`
	AllocatedFixedCosts decimal.Decimal `json:"allocatedFixedCosts"`
	FixedCostPerUnit    decimal.Decimal `json:"fixedCostPerUnit"`
	CIFValue            decimal.Decimal `json:"cifValue"`
	DutyAmount          decimal.Decimal `json:"dutyAmount"`
	IDFAmount           decimal.Decimal `json:"idfAmount"`
	RDLAmount           decimal.Decimal `json:"rdlAmount"`
	VATAmount           decimal.Decimal `json:"vatAmount"`
	TotalTaxesPerUnit   decimal.Decimal `json:"totalTaxesPerUnit"`
	LandedCostPerUnit   decimal.Decimal `json:"landedCostPerUnit"`
	SellingPrice        decimal.Decimal `json:"sellingPrice"`
	EarningPerUnit      decimal.Decimal `json:"earningPerUnit"`
	BreakEvenMembers    *int64          `json:"breakEvenMembers"`
	NotProfitable       bool            `json:"notProfitable"`
	Viable              bool            `json:"viable"`
	MissDistance        *decimal.Decimal `json:"missDistance,omitempty"`
}

// Calculate derives the landed cost and recommended selling price for one
// (product, route, quantity) combination. It is a pure function: no I/O, no
// clock, deterministic for identical inputs.
func Calculate(input Input) (*Breakdown, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(input.Quantity)
	unitCost := input.UnitCost.Mul(input.ExchangeRate)
	insurance := unitCost.Mul(input.Route.MarineInsuranceRate)

	volumeFraction := qty.Mul(input.UnitVolumeM3).Div(input.Route.VolumeCapacityM3)
	weightFraction := qty.Mul(input.UnitWeightKG).Div(input.Route.WeightCapacityKG)
	dominant := volumeFraction
	if weightFraction.GreaterThan(dominant) {
		dominant = weightFraction
	}
	if dominant.GreaterThan(one) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quantity exceeds route capacity").
			WithDetails(map[string]any{"capacityFraction": dominant.Round(4)})
	}

	allocatedFixed := input.Route.FixedCosts.Mul(dominant)
	fixedPerUnit := decimal.Zero
	if input.Quantity > 0 {
		fixedPerUnit = allocatedFixed.Div(qty)
	}

	cif := unitCost.Add(insurance).Add(fixedPerUnit)
	duty := cif.Mul(input.Taxes.DutyRate)
	idf := cif.Mul(input.Taxes.IDFRate)
	rdl := cif.Mul(input.Taxes.RDLRate)
	vatBase := cif.Add(duty).Add(idf).Add(rdl)
	vat := vatBase.Mul(input.Taxes.VATRate)
	totalTaxes := duty.Add(idf).Add(rdl).Add(vat)
	landed := cif.Add(totalTaxes)

	marginSum := input.PlatformMargin.Add(input.RiskMargin)
	denominator := one.Sub(marginSum)
	if !denominator.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combined margins must be below 100%")
	}
	price := landed.Div(denominator).Ceil()
	earningPerUnit := price.Mul(marginSum)

	breakdown := &Breakdown{
		UnitCostKES:         unitCost.Round(2),
		InsurancePerUnit:    insurance.Round(2),
		CapacityFraction:    dominant.Round(4),
		AllocatedFixedCosts: allocatedFixed.Round(2),
		FixedCostPerUnit:    fixedPerUnit.Round(2),
		CIFValue:            cif.Round(2),
		DutyAmount:          duty.Round(2),
		IDFAmount:           idf.Round(2),
		RDLAmount:           rdl.Round(2),
		VATAmount:           vat.Round(2),
		TotalTaxesPerUnit:   totalTaxes.Round(2),
		LandedCostPerUnit:   landed.Round(2),
		SellingPrice:        price,
		EarningPerUnit:      earningPerUnit.Round(2),
	}

	if earningPerUnit.LessThan(minEarning) {
		breakdown.NotProfitable = true
	} else {
		members := allocatedFixed.Div(earningPerUnit).Ceil().IntPart()
		if members < 0 {
			members = 0
		}
		breakdown.BreakEvenMembers = &members
	}

	breakdown.Viable = price.LessThan(input.BenchmarkPrice)
	if !breakdown.Viable {
		miss := price.Sub(input.BenchmarkPrice).Round(2)
		breakdown.MissDistance = &miss
	}
	return breakdown, nil
}

func validateInput(input Input) error {
	switch {
	case input.Quantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	case input.UnitCost.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "unit cost must not be negative")
	case !input.ExchangeRate.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "exchange rate must be positive")
	case !input.Route.VolumeCapacityM3.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "route volume capacity must be positive")
	case !input.Route.WeightCapacityKG.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "route weight capacity must be positive")
	case input.Route.FixedCosts.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "route fixed costs must not be negative")
	case input.PlatformMargin.IsNegative() || input.RiskMargin.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "margins must not be negative")
	}
	return nil
}

// CentsFromDecimal converts a two-decimal amount to integer cents.
func CentsFromDecimal(amount decimal.Decimal) int64 {
	return amount.Mul(hundredCents).Round(0).IntPart()
}

// DecimalFromCents converts integer cents to a decimal amount.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundredCents)
}
