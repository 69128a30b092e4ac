package enums

import "fmt"

// BulkOrderStatus tracks the consolidated order independent of pool status.
type BulkOrderStatus string

const (
	BulkOrderStatusCreated  BulkOrderStatus = "created"
	BulkOrderStatusOrdered  BulkOrderStatus = "ordered"
	BulkOrderStatusShipped  BulkOrderStatus = "shipped"
	BulkOrderStatusReceived BulkOrderStatus = "received"
)

var validBulkOrderStatuses = []BulkOrderStatus{
	BulkOrderStatusCreated,
	BulkOrderStatusOrdered,
	BulkOrderStatusShipped,
	BulkOrderStatusReceived,
}

// String implements fmt.Stringer.
func (b BulkOrderStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BulkOrderStatus.
func (b BulkOrderStatus) IsValid() bool {
	for _, candidate := range validBulkOrderStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBulkOrderStatus converts raw input into a BulkOrderStatus.
func ParseBulkOrderStatus(value string) (BulkOrderStatus, error) {
	for _, candidate := range validBulkOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bulk order status %q", value)
}
