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
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pools"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/metrics"
)

const defaultGraceWindow = 30 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stalePaymentReader interface {
	FindStalePendingPayments(ctx context.Context, cutoff time.Time) ([]models.Payment, error)
}

type ledgerRepoFactory func(tx *gorm.DB) pools.PoolRepository

func defaultLedgerRepo(tx *gorm.DB) pools.PoolRepository {
	return pools.NewRepository(tx)
}

// StalePaymentJobParams configure the pending-payment expiry job.
type StalePaymentJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Payments    stalePaymentReader
	Aggregator  poolfinance.Aggregator
	RepoFactory ledgerRepoFactory
	Metrics     *metrics.CronJobMetrics
	GraceWindow time.Duration
	Schedule    string
}

// NewStalePaymentJob builds the job that expires pending payments whose
// grace window has lapsed, compensating the admission ledger.
func NewStalePaymentJob(params StalePaymentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("stale payment reader required")
	}
	if params.Aggregator == nil {
		return nil, fmt.Errorf("finance aggregator required")
	}
	if params.Schedule == "" {
		return nil, fmt.Errorf("schedule required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultLedgerRepo
	}
	grace := params.GraceWindow
	if grace <= 0 {
		grace = defaultGraceWindow
	}
	return &stalePaymentJob{
		logg:        params.Logger,
		db:          params.DB,
		payments:    params.Payments,
		aggregator:  params.Aggregator,
		repoFactory: repoFactory,
		metrics:     params.Metrics,
		grace:       grace,
		schedule:    params.Schedule,
		now:         time.Now,
	}, nil
}

type stalePaymentJob struct {
	logg        *logger.Logger
	db          txRunner
	payments    stalePaymentReader
	aggregator  poolfinance.Aggregator
	repoFactory ledgerRepoFactory
	metrics     *metrics.CronJobMetrics
	grace       time.Duration
	schedule    string
	now         func() time.Time
}

func (j *stalePaymentJob) Name() string     { return "stale-payment-expiry" }
func (j *stalePaymentJob) Schedule() string { return j.schedule }

func (j *stalePaymentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	stale, err := j.payments.FindStalePendingPayments(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale payments: %w", err)
	}

	var errs []error
	expired := 0
	for _, payment := range stale {
		if err := j.expireOne(ctx, payment); err != nil {
			logCtx := j.logg.WithPaymentID(ctx, payment.ID.String())
			j.logg.Error(logCtx, "stale payment expiry failed; continuing", err)
			errs = append(errs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}
		expired++
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), "expired", expired)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": expired, "failed": len(errs)})
	j.logg.Info(logCtx, "stale payment expiry loop complete")
	return multierr.Combine(errs...)
}

// expireOne compensates one lapsed admission in a single transaction: audit
// rows, a floor-clamped quantity decrement, balance restoration, row
// deletion, and a finance recompute. On a pool that already finalized only
// the cleanup and the balance restore run.
func (j *stalePaymentJob) expireOne(ctx context.Context, payment models.Payment) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)

		current, err := repo.FindLatestPaymentByMember(ctx, *payment.MemberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("reload payment: %w", err)
		}
		if current.Status != enums.PaymentStatusPending {
			return nil
		}

		member, err := repo.FindMemberByID(ctx, *payment.MemberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.DeletePayment(ctx, current.ID)
			}
			return fmt.Errorf("load membership: %w", err)
		}

		pool, err := repo.FindPoolForUpdate(ctx, member.PoolID)
		if err != nil {
			return fmt.Errorf("lock pool: %w", err)
		}

		// A pool that left FILLING was finalized over confirmed quantities
		// only; its ledger and finance row stay untouched while the leftover
		// rows are still cleared and the balance restored.
		compensate := pool.Status == enums.PoolStatusFilling
		if compensate {
			// Pending admissions never counted toward the quantity, so this
			// normally leaves the pool untouched. The clamp keeps a divergent
			// ledger from going negative.
			newQuantity := pool.CurrentQuantity - member.Quantity
			if newQuantity < 0 {
				newQuantity = 0
			}
			if newQuantity != pool.CurrentQuantity {
				pool.CurrentQuantity = newQuantity
				pool.CumulativeValueCents = pool.UnitPriceCents * int64(newQuantity)
				pool.ProgressPercent = decimal.NewFromInt(int64(newQuantity)).
					Div(decimal.NewFromInt(int64(pool.TargetQuantity))).
					Mul(decimal.NewFromInt(100)).
					Round(2)
				if err := repo.SavePool(ctx, pool); err != nil {
					return fmt.Errorf("compensate pool quantity: %w", err)
				}
			}
		}

		user, err := repo.FindUserForUpdate(ctx, member.UserID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		user.BalanceCents += member.BalanceAppliedCents
		if err := repo.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("restore balance offset: %w", err)
		}

		detail, err := json.Marshal(map[string]any{
			"poolId":              pool.ID,
			"userId":              member.UserID,
			"quantity":            member.Quantity,
			"amountCents":         current.AmountCents,
			"balanceRestoredCents": member.BalanceAppliedCents,
		})
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		audits := []*models.AuditLog{
			{ID: uuid.New(), Action: enums.AuditActionPaymentExpired, EntityType: "payment", EntityID: current.ID, Detail: detail},
			{ID: uuid.New(), Action: enums.AuditActionMemberRemoved, EntityType: "pool_member", EntityID: member.ID, Detail: detail},
		}
		for _, entry := range audits {
			if err := repo.CreateAuditLog(ctx, entry); err != nil {
				return fmt.Errorf("write audit log: %w", err)
			}
		}

		if err := repo.DeleteMember(ctx, member.ID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		if err := repo.DeletePayment(ctx, current.ID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		if compensate {
			if _, err := j.aggregator.Recompute(ctx, tx, pool.ID); err != nil {
				return err
			}
		}
		return nil
	})
}
