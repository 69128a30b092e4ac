package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// User is a platform account. Authentication lives outside this service; the
// core only needs the account balance and role.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;not null;uniqueIndex"`
	FullName     string           `gorm:"column:full_name;not null"`
	Phone        string           `gorm:"column:phone;not null"`
	Role         enums.MemberRole `gorm:"column:role;not null;default:'buyer'"`
	BalanceCents int64            `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
