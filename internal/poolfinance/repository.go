package poolfinance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
)

// FinanceRepository is the persistence surface used by the aggregator.
type FinanceRepository interface {
	WithTx(tx *gorm.DB) FinanceRepository
	FindPool(ctx context.Context, poolID uuid.UUID) (*models.Pool, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindByPoolID(ctx context.Context, poolID uuid.UUID) (*models.PoolFinance, error)
	Save(ctx context.Context, finance *models.PoolFinance) error
}

// Repository is the GORM-backed finance store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a finance repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) FinanceRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindPool loads one pool by id.
func (r *Repository) FindPool(ctx context.Context, poolID uuid.UUID) (*models.Pool, error) {
	var pool models.Pool
	if err := r.db.WithContext(ctx).First(&pool, "id = ?", poolID).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

// FindProduct loads one product by id.
func (r *Repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByPoolID loads the finance row for a pool.
func (r *Repository) FindByPoolID(ctx context.Context, poolID uuid.UUID) (*models.PoolFinance, error) {
	var finance models.PoolFinance
	if err := r.db.WithContext(ctx).First(&finance, "pool_id = ?", poolID).Error; err != nil {
		return nil, err
	}
	return &finance, nil
}

// Save persists the finance row, inserting or updating as needed.
func (r *Repository) Save(ctx context.Context, finance *models.PoolFinance) error {
	return r.db.WithContext(ctx).Save(finance).Error
}
