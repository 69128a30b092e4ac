package pools

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/pagination"
)

// PoolRepository is the persistence surface of the admission ledger.
type PoolRepository interface {
	WithTx(tx *gorm.DB) PoolRepository
	FindPool(ctx context.Context, id uuid.UUID) (*models.Pool, error)
	FindPoolForUpdate(ctx context.Context, id uuid.UUID) (*models.Pool, error)
	FindUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindMember(ctx context.Context, poolID, userID uuid.UUID) (*models.PoolMember, error)
	FindMemberByID(ctx context.Context, id uuid.UUID) (*models.PoolMember, error)
	FindLatestPaymentByMember(ctx context.Context, memberID uuid.UUID) (*models.Payment, error)
	CreateMember(ctx context.Context, member *models.PoolMember) error
	DeleteMember(ctx context.Context, id uuid.UUID) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SavePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, id uuid.UUID) error
	SavePool(ctx context.Context, pool *models.Pool) error
	SaveUser(ctx context.Context, user *models.User) error
	CreatePool(ctx context.Context, pool *models.Pool) error
	FindPricingRequest(ctx context.Context, id uuid.UUID) (*models.PricingRequest, error)
	LinkPricingRequest(ctx context.Context, requestID, poolID uuid.UUID) error
	FindExpiredFillingPools(ctx context.Context, now time.Time) ([]models.Pool, error)
	ListFillingPools(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Pool, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	HasBulkOrder(ctx context.Context, poolID uuid.UUID) (bool, error)
	CreateBulkOrder(ctx context.Context, order *models.BulkOrder) error
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// Repository is the GORM-backed pool store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a pool repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) PoolRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindPool loads one pool by id.
func (r *Repository) FindPool(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	var pool models.Pool
	if err := r.db.WithContext(ctx).First(&pool, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
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

// FindPoolForUpdate loads one pool under a row lock. Concurrent joins
// serialize on this lock.
func (r *Repository) FindPoolForUpdate(ctx context.Context, id uuid.UUID) (*models.Pool, error) {
	var pool models.Pool
	if err := r.lockingScope(ctx).First(&pool, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

// FindUserForUpdate loads one user under a row lock so the balance offset
// cannot be applied twice.
func (r *Repository) FindUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.lockingScope(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindMember loads the membership of a user in a pool.
func (r *Repository) FindMember(ctx context.Context, poolID, userID uuid.UUID) (*models.PoolMember, error) {
	var member models.PoolMember
	err := r.db.WithContext(ctx).
		Where("pool_id = ? AND user_id = ?", poolID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindMemberByID loads one membership by id.
func (r *Repository) FindMemberByID(ctx context.Context, id uuid.UUID) (*models.PoolMember, error) {
	var member models.PoolMember
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindLatestPaymentByMember loads the most recent payment tied to a
// membership, under a row lock so expiry and settlement cannot race on it.
func (r *Repository) FindLatestPaymentByMember(ctx context.Context, memberID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.lockingScope(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreateMember inserts a membership row.
func (r *Repository) CreateMember(ctx context.Context, member *models.PoolMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// DeleteMember removes a membership row.
func (r *Repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PoolMember{}, "id = ?", id).Error
}

// CreatePayment inserts a payment row.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// SavePayment persists changes to a payment row.
func (r *Repository) SavePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// DeletePayment removes a payment row.
func (r *Repository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}

// SavePool persists changes to a pool row.
func (r *Repository) SavePool(ctx context.Context, pool *models.Pool) error {
	return r.db.WithContext(ctx).Save(pool).Error
}

// SaveUser persists changes to a user row.
func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// CreatePool inserts a pool row.
func (r *Repository) CreatePool(ctx context.Context, pool *models.Pool) error {
	return r.db.WithContext(ctx).Create(pool).Error
}

// FindPricingRequest loads one pricing run audit row.
func (r *Repository) FindPricingRequest(ctx context.Context, id uuid.UUID) (*models.PricingRequest, error) {
	var request models.PricingRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// LinkPricingRequest ties a pricing run to the pool it produced.
func (r *Repository) LinkPricingRequest(ctx context.Context, requestID, poolID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PricingRequest{}).
		Where("id = ?", requestID).
		Update("pool_id", poolID).Error
}

// FindExpiredFillingPools returns FILLING pools whose deadline has passed.
func (r *Repository) FindExpiredFillingPools(ctx context.Context, now time.Time) ([]models.Pool, error) {
	var pools []models.Pool
	err := r.db.WithContext(ctx).
		Where("status = ? AND deadline < ?", enums.PoolStatusFilling, now).
		Find(&pools).Error
	if err != nil {
		return nil, err
	}
	return pools, nil
}

// ListFillingPools returns one page of FILLING pools ordered newest first.
// The cursor marks the last row of the previous page.
func (r *Repository) ListFillingPools(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Pool, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.PoolStatusFilling).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var pools []models.Pool
	if err := query.Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

// FindProduct loads one product by id.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// HasBulkOrder reports whether a pool already produced its bulk order.
func (r *Repository) HasBulkOrder(ctx context.Context, poolID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BulkOrder{}).
		Where("pool_id = ?", poolID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateBulkOrder inserts the consolidated order snapshot.
func (r *Repository) CreateBulkOrder(ctx context.Context, order *models.BulkOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// CreateAuditLog records a compensating or destructive mutation.
func (r *Repository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
