package pools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/poolfinance"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pricing"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput describes an operator's pool creation request. The economics
// come from a stored pricing run, never from free-form numbers.
type CreateInput struct {
	PricingRequestID uuid.UUID `json:"pricingRequestId"`
	TargetQuantity   int       `json:"targetQuantity"`
	Deadline         time.Time `json:"deadline"`
}

// JoinInput describes one buyer's commitment.
type JoinInput struct {
	PoolID           uuid.UUID
	UserID           uuid.UUID
	Quantity         int
	Method           enums.PaymentMethod
	DeliveryFeeCents int64
}

// JoinOutput tells the buyer what happened and what is still owed.
type JoinOutput struct {
	PaymentID      uuid.UUID           `json:"paymentId"`
	PaymentStatus  enums.PaymentStatus `json:"paymentStatus"`
	AmountDueCents int64               `json:"amountDueCents"`
	Message        string              `json:"message"`
}

// ListInput pages through open pools with a cursor.
type ListInput struct {
	Limit  int
	Cursor string
}

// ListOutput carries one page of pools and the cursor for the next one.
type ListOutput struct {
	Pools      []models.Pool `json:"pools"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// Service drives the pool lifecycle and admissions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Pool, error)
	GetPool(ctx context.Context, id uuid.UUID) (*models.Pool, error)
	ListFilling(ctx context.Context, input ListInput) (*ListOutput, error)
	Join(ctx context.Context, input JoinInput) (*JoinOutput, error)
	Settle(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error
}

type service struct {
	repo       PoolRepository
	tx         txRunner
	aggregator poolfinance.Aggregator
	gateway    mpesa.Gateway
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the pool service.
func NewService(repo PoolRepository, tx txRunner, aggregator poolfinance.Aggregator, gateway mpesa.Gateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pool repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("finance aggregator required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		aggregator: aggregator,
		gateway:    gateway,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// Create opens a FILLING pool from a stored pricing run, snapshotting its
// per-unit economics onto the pool row.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Pool, error) {
	if input.TargetQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be positive")
	}
	if !input.Deadline.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future")
	}

	request, err := s.repo.FindPricingRequest(ctx, input.PricingRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing request not found")
		}
		return nil, fmt.Errorf("load pricing request: %w", err)
	}
	if request.PoolID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "pricing request already produced a pool")
	}

	var calcInput pricing.CalculateInput
	if err := json.Unmarshal(request.InputPayload, &calcInput); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "pricing request is not a calculation run")
	}
	var calcOutput pricing.CalculateOutput
	if err := json.Unmarshal(request.OutputPayload, &calcOutput); err != nil || calcOutput.Breakdown == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pricing request carries no breakdown")
	}
	breakdown := calcOutput.Breakdown
	if breakdown.NotProfitable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pricing run is not profitable")
	}

	pool := &models.Pool{
		ID:                    uuid.New(),
		ProductID:             calcInput.ProductID,
		RouteID:               calcInput.RouteID,
		PricingRequestID:      &request.ID,
		Status:                enums.PoolStatusFilling,
		TargetQuantity:        input.TargetQuantity,
		UnitPriceCents:        pricing.CentsFromDecimal(breakdown.SellingPrice),
		BaseCostPerUnitCents:  pricing.CentsFromDecimal(breakdown.LandedCostPerUnit.Sub(breakdown.FixedCostPerUnit)),
		FixedCostPerUnitCents: pricing.CentsFromDecimal(breakdown.FixedCostPerUnit),
		Deadline:              input.Deadline.UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreatePool(ctx, pool); err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		if err := repo.LinkPricingRequest(ctx, request.ID, pool.ID); err != nil {
			return fmt.Errorf("link pricing request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithPoolID(ctx, pool.ID.String())
	s.logg.Info(logCtx, "pool created")
	return pool, nil
}

// GetPool loads one pool by id.
func (s *service) GetPool(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	pool, err := s.repo.FindPool(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pool not found")
		}
		return nil, fmt.Errorf("load pool: %w", err)
	}
	return pool, nil
}

// ListFilling returns one cursor page of pools still accepting members,
// newest first.
func (s *service) ListFilling(ctx context.Context, input ListInput) (*ListOutput, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.ListFillingPools(ctx, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	output := &ListOutput{Pools: rows}
	if len(rows) > limit {
		output.Pools = rows[:limit]
		last := output.Pools[limit-1]
		output.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return output, nil
}
