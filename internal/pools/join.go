package pools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
)

const (
	msgJoinedWithBalance = "pool joined; your account balance covered the full amount"
	msgPromptSent        = "payment prompt sent to your phone; the pool spot is held until payment confirms"
)

// Join admits a buyer into a pool. The admission runs in one transaction
// serialized on the pool row; the payment prompt is initiated only after the
// transaction commits.
func (s *service) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.DeliveryFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must not be negative")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	var (
		payment *models.Payment
		user    *models.User
		output  JoinOutput
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pool, err := repo.FindPoolForUpdate(ctx, input.PoolID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pool not found")
			}
			return fmt.Errorf("lock pool: %w", err)
		}
		user, err = repo.FindUserForUpdate(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return fmt.Errorf("lock user: %w", err)
		}

		now := s.now().UTC()
		if pool.Status != enums.PoolStatusFilling {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pool is no longer accepting members")
		}
		if !pool.Deadline.After(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pool deadline has passed")
		}
		if pool.CurrentQuantity+input.Quantity > pool.TargetQuantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pool cannot accommodate the requested quantity")
		}
		if err := s.clearStaleMembership(ctx, repo, pool.ID, user); err != nil {
			return err
		}

		total := pool.UnitPriceCents*int64(input.Quantity) + input.DeliveryFeeCents
		deduct := user.BalanceCents
		if deduct > total {
			deduct = total
		}
		remaining := total - deduct
		if input.Method == enums.PaymentMethodBalance && remaining > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "account balance does not cover the full amount")
		}

		user.BalanceCents -= deduct
		if err := repo.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("apply balance offset: %w", err)
		}

		member := &models.PoolMember{
			ID:                  uuid.New(),
			PoolID:              pool.ID,
			UserID:              user.ID,
			Quantity:            input.Quantity,
			BalanceAppliedCents: deduct,
			JoinedAt:            now,
		}
		if err := repo.CreateMember(ctx, member); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}

		payment = &models.Payment{
			ID:          uuid.New(),
			MemberID:    &member.ID,
			PoolID:      pool.ID,
			UserID:      user.ID,
			AmountCents: remaining,
			Method:      input.Method,
		}
		if remaining <= 0 {
			payment.Status = enums.PaymentStatusSuccess
			payment.PaidAt = &now
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
			if err := s.settleTx(ctx, tx, member); err != nil {
				return err
			}
			output = JoinOutput{
				PaymentID:      payment.ID,
				PaymentStatus:  enums.PaymentStatusSuccess,
				AmountDueCents: 0,
				Message:        msgJoinedWithBalance,
			}
			return nil
		}

		payment.Status = enums.PaymentStatusPending
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		output = JoinOutput{
			PaymentID:      payment.ID,
			PaymentStatus:  enums.PaymentStatusPending,
			AmountDueCents: remaining,
			Message:        msgPromptSent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if output.PaymentStatus == enums.PaymentStatusPending {
		if err := s.initiatePrompt(ctx, user, payment); err != nil {
			return nil, err
		}
	}
	return &output, nil
}

// clearStaleMembership removes a previous membership whose payment never
// confirmed, restoring its balance offset. A membership with a confirmed
// payment blocks the join instead.
func (s *service) clearStaleMembership(ctx context.Context, repo PoolRepository, poolID uuid.UUID, user *models.User) error {
	member, err := repo.FindMember(ctx, poolID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("check membership: %w", err)
	}

	payment, err := repo.FindLatestPaymentByMember(ctx, member.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load membership payment: %w", err)
	}
	if payment != nil && payment.Status == enums.PaymentStatusSuccess {
		return pkgerrors.New(pkgerrors.CodeConflict, "user already joined this pool")
	}

	user.BalanceCents += member.BalanceAppliedCents
	if payment != nil {
		if err := repo.DeletePayment(ctx, payment.ID); err != nil {
			return fmt.Errorf("drop stale payment: %w", err)
		}
	}
	if err := repo.DeleteMember(ctx, member.ID); err != nil {
		return fmt.Errorf("drop stale membership: %w", err)
	}
	return nil
}

// initiatePrompt fires the STK push after the join committed and stores the
// gateway correlation ids. A gateway fault leaves the pending row in place
// for the expiry job.
func (s *service) initiatePrompt(ctx context.Context, user *models.User, payment *models.Payment) error {
	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            user.Phone,
		AmountCents:      payment.AmountCents,
		AccountReference: payment.PoolID.String(),
		Description:      "pool contribution",
	})
	if err != nil {
		logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
		s.logg.Error(logCtx, "payment prompt initiation failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	payment.CheckoutRequestID = &resp.CheckoutRequestID
	payment.MerchantRequestID = &resp.MerchantRequestID
	if err := s.repo.SavePayment(ctx, payment); err != nil {
		return fmt.Errorf("store gateway correlation ids: %w", err)
	}
	return nil
}

// Settle confirms a membership inside the caller's transaction: the pool
// quantity, progress and cumulative value advance, the pool may close, and
// the finance row is recomputed. Shared by the balance-covered join path and
// the webhook reconciler.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	member, err := s.repo.WithTx(tx).FindMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pool membership not found")
		}
		return fmt.Errorf("load membership: %w", err)
	}
	return s.settleTx(ctx, tx, member)
}

func (s *service) settleTx(ctx context.Context, tx *gorm.DB, member *models.PoolMember) error {
	repo := s.repo.WithTx(tx)

	pool, err := repo.FindPoolForUpdate(ctx, member.PoolID)
	if err != nil {
		return fmt.Errorf("lock pool for settlement: %w", err)
	}
	if pool.Status != enums.PoolStatusFilling {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pool is no longer filling")
	}
	if pool.CurrentQuantity+member.Quantity > pool.TargetQuantity {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "confirmed quantity would exceed the pool target")
	}

	pool.CurrentQuantity += member.Quantity
	pool.CumulativeValueCents = pool.UnitPriceCents * int64(pool.CurrentQuantity)
	pool.ProgressPercent = decimal.NewFromInt(int64(pool.CurrentQuantity)).
		Div(decimal.NewFromInt(int64(pool.TargetQuantity))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	if pool.CurrentQuantity == pool.TargetQuantity {
		pool.Status = enums.PoolStatusClosed
	}
	if err := repo.SavePool(ctx, pool); err != nil {
		return fmt.Errorf("advance pool state: %w", err)
	}

	if _, err := s.aggregator.Recompute(ctx, tx, pool.ID); err != nil {
		return err
	}

	if pool.Status == enums.PoolStatusClosed {
		logCtx := s.logg.WithPoolID(ctx, pool.ID.String())
		s.logg.Info(logCtx, "pool reached target and closed")
	}
	return nil
}
