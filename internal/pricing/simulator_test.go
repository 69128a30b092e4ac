package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
)

func TestDecimalRangeScalarDecode(t *testing.T) {
	var r DecimalRange
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &r))
	assert.True(t, r.From.Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, r.To.Equal(r.From))
	assert.True(t, r.Step.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"from":1,"to":3,"step":0.5}`), &r))
	assert.True(t, r.To.Equal(decimal.NewFromInt(3)))
}

func TestIntRangeScalarDecode(t *testing.T) {
	var r IntRange
	require.NoError(t, json.Unmarshal([]byte(`40`), &r))
	assert.Equal(t, int64(40), r.From)
	assert.Equal(t, int64(40), r.To)
	assert.Equal(t, int64(0), r.Step)
}

func TestSweepSinglePoint(t *testing.T) {
	base := baseInput()
	result, err := Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: base.UnitCost, To: base.UnitCost},
		Quantity: IntRange{From: 50, To: 50},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Runs)
	assert.Equal(t, 0, result.Faults)
	assert.Empty(t, result.Warning)
	require.NotNil(t, result.Best)
	assert.True(t, result.Best.Breakdown.SellingPrice.Equal(decimal.NewFromInt(1750)))
}

func TestSweepRunCap(t *testing.T) {
	base := baseInput()
	limits := SimulatorLimits{MaxRuns: 10, TopViable: 10, TopFailed: 5}
	result, err := Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: decimal.NewFromInt(1), To: decimal.NewFromInt(5), Step: decimal.NewFromInt(1)},
		Quantity: IntRange{From: 10, To: 50, Step: 10},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, limits)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Runs)
	assert.Equal(t, WarningRunCapReached, result.Warning)
}

func TestSweepBoundedSortedResults(t *testing.T) {
	base := baseInput()
	limits := SimulatorLimits{MaxRuns: 1000, TopViable: 3, TopFailed: 2}
	result, err := Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: decimal.NewFromInt(2), To: decimal.NewFromInt(20), Step: decimal.NewFromInt(2)},
		Quantity: IntRange{From: 50, To: 50},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, limits)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.TopViable), 3)
	for i := 1; i < len(result.TopViable); i++ {
		assert.True(t, result.TopViable[i-1].Breakdown.SellingPrice.LessThanOrEqual(result.TopViable[i].Breakdown.SellingPrice),
			"viable results must ascend by price")
	}
	assert.LessOrEqual(t, len(result.ClosestFailed), 2)
	for i := 1; i < len(result.ClosestFailed); i++ {
		assert.True(t, result.ClosestFailed[i-1].Breakdown.MissDistance.LessThanOrEqual(*result.ClosestFailed[i].Breakdown.MissDistance),
			"failed results must ascend by miss distance")
	}
	if len(result.TopViable) > 0 {
		require.NotNil(t, result.Best)
		assert.True(t, result.Best.Breakdown.SellingPrice.Equal(result.TopViable[0].Breakdown.SellingPrice))
	}
}

func TestSweepFaultsCountedAndContinue(t *testing.T) {
	base := baseInput()
	// Quantities past 100 exceed weight capacity and must fault without
	// aborting the sweep.
	result, err := Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: base.UnitCost, To: base.UnitCost},
		Quantity: IntRange{From: 90, To: 120, Step: 10},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Runs)
	assert.Equal(t, 2, result.Faults)
}

func TestSweepMarginBasisPoints(t *testing.T) {
	values, err := expandMarginRange(DecimalRange{
		From: decimal.NewFromFloat(0.10),
		To:   decimal.NewFromFloat(0.12),
		Step: decimal.NewFromFloat(0.005),
	})
	require.NoError(t, err)
	require.Len(t, values, 5)
	assert.True(t, values[1].Equal(decimal.NewFromFloat(0.105)))
	assert.True(t, values[4].Equal(decimal.NewFromFloat(0.12)))
}

func TestSweepRangeValidation(t *testing.T) {
	base := baseInput()
	_, err := Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: decimal.NewFromInt(5), To: decimal.NewFromInt(1)},
		Quantity: IntRange{From: 1, To: 1},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, DefaultLimits())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = Sweep(SweepParams{
		Base:     base,
		Cost:     DecimalRange{From: decimal.NewFromInt(1), To: decimal.NewFromInt(5)},
		Quantity: IntRange{From: 1, To: 1},
		Margin:   DecimalRange{From: base.PlatformMargin, To: base.PlatformMargin},
	}, DefaultLimits())
	require.Error(t, err, "multi-point range without step must fail")
}
