package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// PaymentRepository is the persistence surface of the reconciler.
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// Repository is the GORM-backed payment store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads one payment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// lockingScope applies FOR UPDATE on engines that support it. The sqlite
// test driver serializes writers on its own.
func (r *Repository) lockingScope(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// FindForUpdate loads one payment under a row lock. Concurrent callback
// deliveries serialize on this lock.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.lockingScope(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByCheckoutRequestID correlates a gateway callback to its payment.
func (r *Repository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutRequestID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Save persists changes to a payment row.
func (r *Repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// CreateAuditLog records a reconciliation anomaly.
func (r *Repository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindStalePendingPayments returns membership-linked PENDING payments created
// before the cutoff.
func (r *Repository) FindStalePendingPayments(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	var stale []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND member_id IS NOT NULL AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}
