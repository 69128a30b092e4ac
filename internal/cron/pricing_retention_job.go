package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pricing"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/metrics"
)

const defaultPricingRetention = 90 * 24 * time.Hour

type pricingRepoFactory func(tx *gorm.DB) pricing.PricingRepository

func defaultPricingRepo(tx *gorm.DB) pricing.PricingRepository {
	return pricing.NewRepository(tx)
}

// PricingRetentionJobParams configure the pricing-run cleanup job.
type PricingRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	RepoFactory pricingRepoFactory
	Metrics     *metrics.CronJobMetrics
	Retention   time.Duration
	Schedule    string
}

// NewPricingRetentionJob builds the job that purges pricing runs older than
// the retention window. Runs linked to a pool are kept forever as the audit
// trail of that pool's economics.
func NewPricingRetentionJob(params PricingRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Schedule == "" {
		return nil, fmt.Errorf("schedule required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultPricingRepo
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultPricingRetention
	}
	return &pricingRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repoFactory: repoFactory,
		metrics:     params.Metrics,
		retention:   retention,
		schedule:    params.Schedule,
		now:         time.Now,
	}, nil
}

type pricingRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repoFactory pricingRepoFactory
	metrics     *metrics.CronJobMetrics
	retention   time.Duration
	schedule    string
	now         func() time.Time
}

func (j *pricingRetentionJob) Name() string     { return "pricing-retention" }
func (j *pricingRetentionJob) Schedule() string { return j.schedule }

func (j *pricingRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var delErr error
		deleted, delErr = j.repoFactory(tx).DeleteUnlinkedBefore(ctx, cutoff)
		return delErr
	})
	if err != nil {
		return fmt.Errorf("purge pricing runs: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), "deleted", int(deleted))
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"deleted": deleted, "cutoff": cutoff})
	j.logg.Info(logCtx, "pricing retention sweep complete")
	return nil
}
