package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
)

// Payment tracks what a member still owes after their balance offset. Status
// moves pending -> success | failed exactly once; the checkout request id
// correlates the asynchronous gateway callback.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID          *uuid.UUID          `gorm:"column:member_id;type:uuid;index"`
	PoolID            uuid.UUID           `gorm:"column:pool_id;type:uuid;not null;index"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;not null;default:'pending';index"`
	Method            enums.PaymentMethod `gorm:"column:method;not null"`
	CheckoutRequestID *string             `gorm:"column:checkout_request_id;uniqueIndex"`
	MerchantRequestID *string             `gorm:"column:merchant_request_id"`
	ReceiptNumber     *string             `gorm:"column:receipt_number"`
	RawMetadata       json.RawMessage     `gorm:"column:raw_metadata;type:jsonb"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
