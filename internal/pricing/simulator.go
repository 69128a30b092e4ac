package pricing

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
)

// WarningRunCapReached is returned when the sweep stops early.
const WarningRunCapReached = "simulation run cap reached; results are partial"

var basisPointScale = decimal.NewFromInt(10000)

// DecimalRange sweeps a decimal parameter. A bare JSON number decodes as a
// single-point range.
type DecimalRange struct {
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
	Step decimal.Decimal `json:"step"`
}

// UnmarshalJSON accepts either a scalar or a {from,to,step} object.
func (r *DecimalRange) UnmarshalJSON(data []byte) error {
	var scalar decimal.Decimal
	if err := json.Unmarshal(data, &scalar); err == nil {
		r.From, r.To, r.Step = scalar, scalar, decimal.Zero
		return nil
	}
	type alias DecimalRange
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*r = DecimalRange(parsed)
	return nil
}

// IntRange sweeps an integer parameter; scalars decode as single points.
type IntRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	Step int64 `json:"step"`
}

func (r *IntRange) UnmarshalJSON(data []byte) error {
	var scalar int64
	if err := json.Unmarshal(data, &scalar); err == nil {
		r.From, r.To, r.Step = scalar, scalar, 0
		return nil
	}
	type alias IntRange
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*r = IntRange(parsed)
	return nil
}

// SimulatorLimits bound a sweep.
type SimulatorLimits struct {
	MaxRuns   int
	TopViable int
	TopFailed int
}

// DefaultLimits mirror the documented simulator bounds.
func DefaultLimits() SimulatorLimits {
	return SimulatorLimits{MaxRuns: 1000, TopViable: 10, TopFailed: 5}
}

// SweepParams describe one simulation: a base calculation plus the three
// swept dimensions. Margin sweeps the platform margin.
type SweepParams struct {
	Base     Input
	Cost     DecimalRange
	Quantity IntRange
	Margin   DecimalRange
}

// Candidate is one simulated configuration with its computed breakdown.
type Candidate struct {
	UnitCost  decimal.Decimal `json:"unitCost"`
	Quantity  int64           `json:"quantity"`
	Margin    decimal.Decimal `json:"margin"`
	Breakdown Breakdown       `json:"breakdown"`
}

// SweepResult aggregates a simulation run.
type SweepResult struct {
	Runs          int         `json:"runs"`
	Faults        int         `json:"faults"`
	Warning       string      `json:"warning,omitempty"`
	Best          *Candidate  `json:"best,omitempty"`
	TopViable     []Candidate `json:"topViable"`
	ClosestFailed []Candidate `json:"closestFailed"`
}

// Sweep runs the calculator across the cartesian product of the three ranges.
// Individual calculation faults are counted and the sweep continues; the hard
// run cap truncates the product with a warning rather than failing.
func Sweep(params SweepParams, limits SimulatorLimits) (*SweepResult, error) {
	if limits.MaxRuns <= 0 || limits.TopViable <= 0 || limits.TopFailed <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "simulator limits must be positive")
	}
	costs, err := expandDecimalRange(params.Cost, "cost")
	if err != nil {
		return nil, err
	}
	quantities, err := expandIntRange(params.Quantity, "quantity")
	if err != nil {
		return nil, err
	}
	margins, err := expandMarginRange(params.Margin)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		TopViable:     make([]Candidate, 0, limits.TopViable),
		ClosestFailed: make([]Candidate, 0, limits.TopFailed),
	}

sweep:
	for _, cost := range costs {
		for _, qty := range quantities {
			for _, margin := range margins {
				if result.Runs >= limits.MaxRuns {
					result.Warning = WarningRunCapReached
					break sweep
				}
				result.Runs++

				input := params.Base
				input.UnitCost = cost
				input.Quantity = qty
				input.PlatformMargin = margin

				breakdown, err := Calculate(input)
				if err != nil {
					result.Faults++
					continue
				}
				candidate := Candidate{
					UnitCost:  cost,
					Quantity:  qty,
					Margin:    margin,
					Breakdown: *breakdown,
				}
				if breakdown.Viable {
					result.TopViable = insertViable(result.TopViable, candidate, limits.TopViable)
				} else if breakdown.MissDistance != nil {
					result.ClosestFailed = insertFailed(result.ClosestFailed, candidate, limits.TopFailed)
				}
			}
		}
	}

	if len(result.TopViable) > 0 {
		best := result.TopViable[0]
		result.Best = &best
	}
	return result, nil
}

// insertViable keeps the list sorted ascending by selling price, truncated to
// the configured size.
func insertViable(list []Candidate, candidate Candidate, max int) []Candidate {
	list = append(list, candidate)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Breakdown.SellingPrice.LessThan(list[j].Breakdown.SellingPrice)
	})
	if len(list) > max {
		list = list[:max]
	}
	return list
}

// insertFailed keeps the near-miss list sorted ascending by miss distance.
func insertFailed(list []Candidate, candidate Candidate, max int) []Candidate {
	list = append(list, candidate)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Breakdown.MissDistance.LessThan(*list[j].Breakdown.MissDistance)
	})
	if len(list) > max {
		list = list[:max]
	}
	return list
}

func expandDecimalRange(r DecimalRange, name string) ([]decimal.Decimal, error) {
	if r.To.LessThan(r.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s range end is below its start", name))
	}
	if r.From.Equal(r.To) {
		return []decimal.Decimal{r.From}, nil
	}
	if !r.Step.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s range requires a positive step", name))
	}
	var values []decimal.Decimal
	for v := r.From; !v.GreaterThan(r.To); v = v.Add(r.Step) {
		values = append(values, v)
	}
	return values, nil
}

func expandIntRange(r IntRange, name string) ([]int64, error) {
	if r.To < r.From {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s range end is below its start", name))
	}
	if r.From == r.To {
		return []int64{r.From}, nil
	}
	if r.Step <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s range requires a positive step", name))
	}
	var values []int64
	for v := r.From; v <= r.To; v += r.Step {
		values = append(values, v)
	}
	return values, nil
}

// expandMarginRange quantizes margins to integer basis points so fractional
// steps cannot drift across iterations.
func expandMarginRange(r DecimalRange) ([]decimal.Decimal, error) {
	fromBP := r.From.Mul(basisPointScale).Round(0).IntPart()
	toBP := r.To.Mul(basisPointScale).Round(0).IntPart()
	stepBP := r.Step.Mul(basisPointScale).Round(0).IntPart()
	if toBP < fromBP {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "margin range end is below its start")
	}
	if fromBP == toBP {
		return []decimal.Decimal{decimal.NewFromInt(fromBP).Div(basisPointScale)}, nil
	}
	if stepBP <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "margin range requires a step of at least one basis point")
	}
	var values []decimal.Decimal
	for bp := fromBP; bp <= toBP; bp += stepBP {
		values = append(values, decimal.NewFromInt(bp).Div(basisPointScale))
	}
	return values, nil
}
