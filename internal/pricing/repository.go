package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
)

// Repository loads the reference data a pricing run needs and persists the
// run's audit record.
type Repository struct {
	db *gorm.DB
}

// PricingRepository is the persistence surface consumed by the service.
type PricingRepository interface {
	WithTx(tx *gorm.DB) PricingRepository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindRoute(ctx context.Context, id uuid.UUID) (*models.LogisticsRoute, error)
	FindEffectiveTaxRate(ctx context.Context, hsCode string, at time.Time) (*models.TaxRate, error)
	CreateRequest(ctx context.Context, request *models.PricingRequest) (*models.PricingRequest, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.PricingRequest, error)
	DeleteUnlinkedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewRepository constructs a pricing repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) PricingRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct loads one product by id.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindRoute loads one logistics route by id.
func (r *Repository) FindRoute(ctx context.Context, id uuid.UUID) (*models.LogisticsRoute, error) {
	var route models.LogisticsRoute
	if err := r.db.WithContext(ctx).First(&route, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// FindEffectiveTaxRate returns the latest rate row effective at the given
// time for the classification code.
func (r *Repository) FindEffectiveTaxRate(ctx context.Context, hsCode string, at time.Time) (*models.TaxRate, error) {
	var rate models.TaxRate
	err := r.db.WithContext(ctx).
		Where("hs_code = ? AND effective_from <= ?", hsCode, at).
		Where("effective_to IS NULL OR effective_to >= ?", at).
		Order("effective_from DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// CreateRequest inserts one pricing run audit row.
func (r *Repository) CreateRequest(ctx context.Context, request *models.PricingRequest) (*models.PricingRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindRequest loads one pricing run audit row by id.
func (r *Repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.PricingRequest, error) {
	var request models.PricingRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// DeleteUnlinkedBefore removes audit rows older than the cutoff that never
// produced a pool.
func (r *Repository) DeleteUnlinkedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("pool_id IS NULL AND created_at < ?", cutoff).
		Delete(&models.PricingRequest{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
