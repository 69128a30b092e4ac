package settings

import (
	"context"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"gorm.io/gorm"
)

// SettingRepository loads raw setting rows.
type SettingRepository interface {
	WithTx(tx *gorm.DB) SettingRepository
	FindByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
}

// Repository is the GORM-backed setting store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a setting repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) SettingRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByKeys returns the stored rows for the requested keys. Missing keys are
// simply absent from the result.
func (r *Repository) FindByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	var rows []models.Setting
	err := r.db.WithContext(ctx).
		Where("key IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
