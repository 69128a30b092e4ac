package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/poolfinance"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/metrics"
)

// PoolFinalizationJobParams configure the deadline finalization job.
type PoolFinalizationJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Aggregator  poolfinance.Aggregator
	Settings    settings.Service
	RepoFactory ledgerRepoFactory
	Metrics     *metrics.CronJobMetrics
	Schedule    string
}

// NewPoolFinalizationJob builds the job that closes FILLING pools whose
// deadline has passed with at least one confirmed unit, sealing their
// finances and emitting the consolidated bulk order.
func NewPoolFinalizationJob(params PoolFinalizationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Aggregator == nil {
		return nil, fmt.Errorf("finance aggregator required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Schedule == "" {
		return nil, fmt.Errorf("schedule required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultLedgerRepo
	}
	return &poolFinalizationJob{
		logg:        params.Logger,
		db:          params.DB,
		aggregator:  params.Aggregator,
		settings:    params.Settings,
		repoFactory: repoFactory,
		metrics:     params.Metrics,
		schedule:    params.Schedule,
		now:         time.Now,
	}, nil
}

type poolFinalizationJob struct {
	logg        *logger.Logger
	db          txRunner
	aggregator  poolfinance.Aggregator
	settings    settings.Service
	repoFactory ledgerRepoFactory
	metrics     *metrics.CronJobMetrics
	schedule    string
	now         func() time.Time
}

func (j *poolFinalizationJob) Name() string     { return "pool-finalization" }
func (j *poolFinalizationJob) Schedule() string { return j.schedule }

func (j *poolFinalizationJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var due []models.Pool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var listErr error
		due, listErr = j.repoFactory(tx).FindExpiredFillingPools(ctx, now)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("query expired pools: %w", err)
	}

	var errs []error
	finalized := 0
	skipped := 0
	for _, pool := range due {
		done, err := j.finalizeOne(ctx, pool.ID, now)
		if err != nil {
			logCtx := j.logg.WithPoolID(ctx, pool.ID.String())
			j.logg.Error(logCtx, "pool finalization failed; continuing", err)
			errs = append(errs, fmt.Errorf("pool %s: %w", pool.ID, err))
			continue
		}
		if done {
			finalized++
		} else {
			skipped++
		}
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), "finalized", finalized)
		j.metrics.AddProcessed(j.Name(), "skipped", skipped)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"finalized": finalized,
		"skipped":   skipped,
		"failed":    len(errs),
	})
	j.logg.Info(logCtx, "pool finalization loop complete")
	return multierr.Combine(errs...)
}

// finalizeOne closes a single pool in one transaction. It reports false when
// the pool turned out not to be finalizable after all, which is not an error.
func (j *poolFinalizationJob) finalizeOne(ctx context.Context, poolID uuid.UUID, now time.Time) (bool, error) {
	finalized := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)

		pool, err := repo.FindPoolForUpdate(ctx, poolID)
		if err != nil {
			return fmt.Errorf("lock pool: %w", err)
		}
		if pool.Status != enums.PoolStatusFilling || pool.Deadline.After(now) {
			return nil
		}
		if pool.CurrentQuantity < 1 {
			logCtx := j.logg.WithPoolID(ctx, pool.ID.String())
			j.logg.Info(logCtx, "expired pool has no confirmed units; leaving as is")
			return nil
		}
		exists, err := repo.HasBulkOrder(ctx, pool.ID)
		if err != nil {
			return fmt.Errorf("check bulk order: %w", err)
		}
		if exists {
			return nil
		}

		product, err := repo.FindProduct(ctx, pool.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logCtx := j.logg.WithPoolID(ctx, pool.ID.String())
				j.logg.Warn(logCtx, "pool references a missing product; skipping finalization")
				return nil
			}
			return fmt.Errorf("load product: %w", err)
		}

		snapshot, err := j.settings.SnapshotTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("load settings snapshot: %w", err)
		}

		finance, err := j.aggregator.Finalize(ctx, tx, pool.ID, now)
		if err != nil {
			return err
		}

		pool.Status = enums.PoolStatusClosed
		if err := repo.SavePool(ctx, pool); err != nil {
			return fmt.Errorf("close pool: %w", err)
		}

		quantity := int64(pool.CurrentQuantity)
		order := &models.BulkOrder{
			ID:                  uuid.New(),
			PoolID:              pool.ID,
			Status:              enums.BulkOrderStatusCreated,
			LogisticsCostCents:  pool.FixedCostPerUnitCents * quantity,
			TotalOrderCostCents: finance.TotalCostCents,
			PerItemCostSource:   decimal.NewFromInt(product.BaseCostCents).Div(decimal.NewFromInt(100)),
			ExchangeRate:        snapshot.ExchangeRate,
		}
		if err := repo.CreateBulkOrder(ctx, order); err != nil {
			return fmt.Errorf("create bulk order: %w", err)
		}

		detail, err := json.Marshal(map[string]any{
			"bulkOrderId":     order.ID,
			"currentQuantity": pool.CurrentQuantity,
			"revenueCents":    finance.TotalRevenueCents,
		})
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		entry := &models.AuditLog{
			ID:         uuid.New(),
			Action:     enums.AuditActionPoolFinalized,
			EntityType: "pool",
			EntityID:   pool.ID,
			Detail:     detail,
		}
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}

		finalized = true
		return nil
	})
	return finalized, err
}
