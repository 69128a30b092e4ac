package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
)

// CalculateInput identifies one calculation request.
type CalculateInput struct {
	ProductID uuid.UUID `json:"productId"`
	RouteID   uuid.UUID `json:"routeId"`
	Quantity  int64     `json:"quantity"`
}

// CalculateOutput couples the breakdown with its audit record id.
type CalculateOutput struct {
	RequestID uuid.UUID  `json:"requestId"`
	Breakdown *Breakdown `json:"breakdown"`
}

// SimulateInput identifies one sweep request. Scalar JSON values for the
// ranges decode as single-point ranges.
type SimulateInput struct {
	ProductID uuid.UUID    `json:"productId"`
	RouteID   uuid.UUID    `json:"routeId"`
	Cost      DecimalRange `json:"cost"`
	Quantity  IntRange     `json:"quantity"`
	Margin    DecimalRange `json:"margin"`
}

// SimulateOutput couples the sweep result with its audit record id.
type SimulateOutput struct {
	RequestID uuid.UUID    `json:"requestId"`
	Result    *SweepResult `json:"result"`
}

// Service runs pricing calculations and simulations.
type Service interface {
	Calculate(ctx context.Context, input CalculateInput) (*CalculateOutput, error)
	Simulate(ctx context.Context, input SimulateInput) (*SimulateOutput, error)
}

type service struct {
	repo     PricingRepository
	settings settings.Service
	limits   SimulatorLimits
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a pricing service.
func NewService(repo PricingRepository, settingsSvc settings.Service, limits SimulatorLimits, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if limits.MaxRuns <= 0 {
		limits = DefaultLimits()
	}
	return &service{
		repo:     repo,
		settings: settingsSvc,
		limits:   limits,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Calculate runs one landed-cost breakdown and records it.
func (s *service) Calculate(ctx context.Context, input CalculateInput) (*CalculateOutput, error) {
	base, err := s.assembleInput(ctx, input.ProductID, input.RouteID)
	if err != nil {
		return nil, err
	}
	base.Quantity = input.Quantity

	breakdown, err := Calculate(*base)
	if err != nil {
		return nil, err
	}

	requestID, err := s.record(ctx, input, breakdown)
	if err != nil {
		return nil, err
	}
	return &CalculateOutput{RequestID: requestID, Breakdown: breakdown}, nil
}

// Simulate sweeps the configured ranges and records the run.
func (s *service) Simulate(ctx context.Context, input SimulateInput) (*SimulateOutput, error) {
	base, err := s.assembleInput(ctx, input.ProductID, input.RouteID)
	if err != nil {
		return nil, err
	}

	result, err := Sweep(SweepParams{
		Base:     *base,
		Cost:     input.Cost,
		Quantity: input.Quantity,
		Margin:   input.Margin,
	}, s.limits)
	if err != nil {
		return nil, err
	}
	if result.Warning != "" {
		logCtx := s.logg.WithFields(ctx, map[string]any{"runs": result.Runs})
		s.logg.Warn(logCtx, "pricing simulation truncated at run cap")
	}

	requestID, err := s.record(ctx, input, result)
	if err != nil {
		return nil, err
	}
	return &SimulateOutput{RequestID: requestID, Result: result}, nil
}

// assembleInput loads the reference data and settings for a run. Everything
// except quantity and swept fields is fixed here.
func (s *service) assembleInput(ctx context.Context, productID, routeID uuid.UUID) (*Input, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	route, err := s.repo.FindRoute(ctx, routeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "logistics route not found")
		}
		return nil, fmt.Errorf("load route: %w", err)
	}
	taxRate, err := s.repo.FindEffectiveTaxRate(ctx, product.HSCode, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no effective tax rate for product classification")
		}
		return nil, fmt.Errorf("load tax rate: %w", err)
	}
	snapshot, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &Input{
		UnitCost:     DecimalFromCents(product.BaseCostCents),
		ExchangeRate: snapshot.ExchangeRate,
		UnitWeightKG: product.UnitWeightKG,
		UnitVolumeM3: product.UnitVolumeM3,
		Route: RouteCosts{
			VolumeCapacityM3:    route.VolumeCapacityM3,
			WeightCapacityKG:    route.WeightCapacityKG,
			FixedCosts:          DecimalFromCents(route.FixedCostsCents()),
			MarineInsuranceRate: route.MarineInsuranceRate,
		},
		Taxes: TaxSchedule{
			DutyRate: taxRate.DutyRate,
			IDFRate:  taxRate.IDFRate,
			RDLRate:  taxRate.RDLRate,
			VATRate:  taxRate.VATRate,
		},
		PlatformMargin: snapshot.PlatformMargin,
		RiskMargin:     snapshot.RiskMargin,
		BenchmarkPrice: DecimalFromCents(product.BenchmarkPriceCents),
	}, nil
}

// record persists the run as an audit row. Every run creates a new row, even
// for identical parameters.
func (s *service) record(ctx context.Context, input any, output any) (uuid.UUID, error) {
	inputPayload, err := json.Marshal(input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal pricing input: %w", err)
	}
	outputPayload, err := json.Marshal(output)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal pricing output: %w", err)
	}
	request, err := s.repo.CreateRequest(ctx, &models.PricingRequest{
		InputPayload:  inputPayload,
		OutputPayload: outputPayload,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("persist pricing request: %w", err)
	}
	return request.ID, nil
}
