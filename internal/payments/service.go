package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Settler confirms a membership once its payment settles. Implemented by the
// pool service.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error
}

// Service reconciles gateway callbacks against payment rows.
type Service interface {
	HandleSTKCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error
	GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*models.Payment, error)
}

type service struct {
	repo    PaymentRepository
	tx      txRunner
	settler Settler
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the payment reconciliation service.
func NewService(repo PaymentRepository, tx txRunner, settler Settler, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		settler: settler,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// HandleSTKCallback applies one gateway callback. Unknown correlation ids and
// already-terminal payments are acknowledged without mutation, which makes
// the handler idempotent under provider retries. The terminal check here is
// a fast path; applySuccess and applyFailure repeat it under a row lock.
func (s *service) HandleSTKCallback(ctx context.Context, envelope mpesa.CallbackEnvelope) error {
	callback := envelope.Body.STKCallback
	if callback.CheckoutRequestID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback is missing the checkout request id")
	}

	payment, err := s.repo.FindByCheckoutRequestID(ctx, callback.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logCtx := s.logg.WithField(ctx, "checkout_request_id", callback.CheckoutRequestID)
			s.logg.Warn(logCtx, "callback for unknown checkout request acknowledged")
			return nil
		}
		return fmt.Errorf("correlate callback: %w", err)
	}

	logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
	if payment.Status.IsTerminal() {
		s.logg.Info(logCtx, "callback for settled payment acknowledged")
		return nil
	}

	if callback.Succeeded() {
		return s.applySuccess(logCtx, payment, callback)
	}
	return s.applyFailure(logCtx, payment, callback)
}

// applySuccess marks the payment settled and runs the shared settlement
// continuation in one transaction. The payment is re-read under a row lock
// so a callback racing a duplicate delivery or the expiry job mutates the
// pool at most once.
func (s *service) applySuccess(ctx context.Context, payment *models.Payment, callback mpesa.STKCallback) error {
	paidAt := s.now().UTC()
	if raw, ok := callback.MetadataString("TransactionDate"); ok {
		parsed, err := mpesa.ParseTransactionTime(raw)
		if err != nil {
			logCtx := s.logg.WithField(ctx, "transaction_date", raw)
			s.logg.Warn(logCtx, "unparseable transaction time; falling back to receipt time")
		} else {
			paidAt = parsed.UTC()
		}
	}

	metadata, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("marshal callback metadata: %w", err)
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindForUpdate(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if current.Status.IsTerminal() {
			s.logg.Info(ctx, "payment settled by a concurrent delivery; callback acknowledged")
			return nil
		}

		current.Status = enums.PaymentStatusSuccess
		current.PaidAt = &paidAt
		current.RawMetadata = metadata
		if receipt, ok := callback.MetadataString("MpesaReceiptNumber"); ok {
			current.ReceiptNumber = &receipt
		}
		if err := repo.Save(ctx, current); err != nil {
			return fmt.Errorf("settle payment: %w", err)
		}

		if current.MemberID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "settled payment has no membership")
		}
		if err := s.settler.Settle(ctx, tx, *current.MemberID); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
				return s.recordLateCollection(ctx, repo, current)
			}
			return err
		}
		s.logg.Info(ctx, "payment settled and membership confirmed")
		return nil
	})
}

// recordLateCollection handles money the gateway confirms collected for a
// pool that can no longer absorb it. The payment is marked failed with an
// explicit reason and an audit row, keeping the receipt visible for refund
// reconciliation instead of rolling the confirmation back.
func (s *service) recordLateCollection(ctx context.Context, repo PaymentRepository, payment *models.Payment) error {
	reason := "payment confirmed after the pool closed"
	payment.Status = enums.PaymentStatusFailed
	payment.FailureReason = &reason
	if err := repo.Save(ctx, payment); err != nil {
		return fmt.Errorf("record late collection: %w", err)
	}

	detail, err := json.Marshal(map[string]any{
		"poolId":      payment.PoolID,
		"memberId":    payment.MemberID,
		"amountCents": payment.AmountCents,
		"receipt":     payment.ReceiptNumber,
	})
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	entry := &models.AuditLog{
		ID:         uuid.New(),
		Action:     enums.AuditActionPaymentAfterClose,
		EntityType: "payment",
		EntityID:   payment.ID,
		Detail:     detail,
	}
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	s.logg.Warn(ctx, "payment confirmed after pool close; funds flagged for refund review")
	return nil
}

// applyFailure marks the payment failed; the pool is untouched and the
// membership waits for the expiry job. The row-lock re-read keeps a stale
// failure delivery from overwriting a settlement that won the race.
func (s *service) applyFailure(ctx context.Context, payment *models.Payment, callback mpesa.STKCallback) error {
	metadata, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("marshal callback metadata: %w", err)
	}
	reason := callback.ResultDesc
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindForUpdate(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if current.Status.IsTerminal() {
			s.logg.Info(ctx, "callback for settled payment acknowledged")
			return nil
		}

		current.Status = enums.PaymentStatusFailed
		current.FailureReason = &reason
		current.RawMetadata = metadata
		if err := repo.Save(ctx, current); err != nil {
			return fmt.Errorf("record payment failure: %w", err)
		}
		s.logg.Info(ctx, "payment marked failed")
		return nil
	})
}

// GetPayment loads one payment visible only to its owner.
func (s *service) GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	return payment, nil
}
