package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// AuditLog records compensating and destructive mutations performed by the
// scheduled reconciliation jobs.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action     enums.AuditAction `gorm:"column:action;not null;index"`
	EntityType string            `gorm:"column:entity_type;not null"`
	EntityID   uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index"`
	Detail     json.RawMessage   `gorm:"column:detail;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
