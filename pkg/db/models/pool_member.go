package models

import (
	"time"

	"github.com/google/uuid"
)

// PoolMember records one buyer's commitment to a pool. A member whose payment
// never succeeded does not count toward the pool quantity.
type PoolMember struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PoolID              uuid.UUID `gorm:"column:pool_id;type:uuid;not null;index"`
	UserID              uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Quantity            int       `gorm:"column:quantity;not null"`
	BalanceAppliedCents int64     `gorm:"column:balance_applied_cents;not null;default:0"`
	JoinedAt            time.Time `gorm:"column:joined_at;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
