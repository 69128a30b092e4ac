package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PricingRequest is the audit record of one calculation or simulation run.
// Rerunning identical parameters always creates a new row; unlinked rows are
// garbage-collected after a retention window.
type PricingRequest struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InputPayload  json.RawMessage `gorm:"column:input_payload;type:jsonb;not null"`
	OutputPayload json.RawMessage `gorm:"column:output_payload;type:jsonb;not null"`
	PoolID        *uuid.UUID      `gorm:"column:pool_id;type:uuid;index"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
