package enums

import "fmt"

// PoolStatus tracks the lifecycle of a group-buying pool.
type PoolStatus string

const (
	PoolStatusFilling   PoolStatus = "filling"
	PoolStatusClosed    PoolStatus = "closed"
	PoolStatusShipping  PoolStatus = "shipping"
	PoolStatusDelivered PoolStatus = "delivered"
)

var validPoolStatuses = []PoolStatus{
	PoolStatusFilling,
	PoolStatusClosed,
	PoolStatusShipping,
	PoolStatusDelivered,
}

// String implements fmt.Stringer.
func (p PoolStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PoolStatus.
func (p PoolStatus) IsValid() bool {
	for _, candidate := range validPoolStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePoolStatus converts raw input into a PoolStatus.
func ParsePoolStatus(value string) (PoolStatus, error) {
	for _, candidate := range validPoolStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pool status %q", value)
}
