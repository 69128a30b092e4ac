package poolfinance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
)

// Aggregator recomputes the derived financial row of a pool. It always
// composes inside the caller's transaction so that admission, reconciliation
// and the scheduled jobs stay atomic with the recompute.
type Aggregator interface {
	Recompute(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) (*models.PoolFinance, error)
	Finalize(ctx context.Context, tx *gorm.DB, poolID uuid.UUID, at time.Time) (*models.PoolFinance, error)
}

type aggregator struct {
	repo     FinanceRepository
	settings settings.Service
	logg     *logger.Logger
}

// NewAggregator builds the pool finance aggregator.
func NewAggregator(repo FinanceRepository, settingsSvc settings.Service, logg *logger.Logger) (Aggregator, error) {
	if repo == nil {
		return nil, fmt.Errorf("finance repository required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &aggregator{repo: repo, settings: settingsSvc, logg: logg}, nil
}

// Recompute derives all financial aggregates from the pool's current state
// and upserts the finance row. A missing pool is fatal to the enclosing
// transaction.
func (a *aggregator) Recompute(ctx context.Context, tx *gorm.DB, poolID uuid.UUID) (*models.PoolFinance, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := a.repo.WithTx(tx)

	pool, err := repo.FindPool(ctx, poolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pool not found")
		}
		return nil, fmt.Errorf("load pool: %w", err)
	}
	product, err := repo.FindProduct(ctx, pool.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pool product not found")
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	snapshot, err := a.settings.SnapshotTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	finance, err := repo.FindByPoolID(ctx, poolID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load pool finance: %w", err)
		}
		finance = &models.PoolFinance{ID: uuid.New(), PoolID: poolID}
	}
	if finance.IsFinalized {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pool finance already finalized")
	}

	qty := int64(pool.CurrentQuantity)
	revenue := pool.UnitPriceCents * qty
	variablePerUnit := pool.BaseCostPerUnitCents + pool.FixedCostPerUnitCents
	totalCost := variablePerUnit * qty
	grossProfit := revenue - totalCost

	var platformEarning, memberSavings int64
	if grossProfit > 0 {
		profit := decimal.NewFromInt(grossProfit)
		platformEarning = profit.Mul(snapshot.PlatformFeeRate).Round(0).IntPart()
		memberSavings = profit.Mul(snapshot.MemberSavingsRate).Round(0).IntPart()
	}

	finance.BaseCostPerUnitCents = pool.BaseCostPerUnitCents
	finance.FixedCostsCents = pool.FixedCostPerUnitCents * qty
	finance.VariableCostPerUnitCents = variablePerUnit
	finance.BenchmarkPriceCents = product.BenchmarkPriceCents
	finance.TotalRevenueCents = revenue
	finance.TotalCostCents = totalCost
	finance.GrossProfitCents = grossProfit
	finance.PlatformEarningCents = platformEarning
	finance.MemberSavingsCents = memberSavings

	if err := repo.Save(ctx, finance); err != nil {
		return nil, fmt.Errorf("save pool finance: %w", err)
	}
	return finance, nil
}

// Finalize recomputes the aggregates one last time and seals the row.
func (a *aggregator) Finalize(ctx context.Context, tx *gorm.DB, poolID uuid.UUID, at time.Time) (*models.PoolFinance, error) {
	finance, err := a.Recompute(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	finance.IsFinalized = true
	finance.FinalizedAt = &at
	if err := a.repo.WithTx(tx).Save(ctx, finance); err != nil {
		return nil, fmt.Errorf("finalize pool finance: %w", err)
	}
	return finance, nil
}
