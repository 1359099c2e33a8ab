package enums

import "fmt"

// BulkOrderStatus tracks a bulk/corporate order request through quoting.
type BulkOrderStatus string

const (
	BulkOrderStatusPending   BulkOrderStatus = "pending"
	BulkOrderStatusQuoted    BulkOrderStatus = "quoted"
	BulkOrderStatusConfirmed BulkOrderStatus = "confirmed"
	BulkOrderStatusRejected  BulkOrderStatus = "rejected"
	BulkOrderStatusCancelled BulkOrderStatus = "cancelled"
)

var validBulkOrderStatuses = []BulkOrderStatus{
	BulkOrderStatusPending,
	BulkOrderStatusQuoted,
	BulkOrderStatusConfirmed,
	BulkOrderStatusRejected,
	BulkOrderStatusCancelled,
}

func (s BulkOrderStatus) String() string {
	return string(s)
}

func (s BulkOrderStatus) IsValid() bool {
	for _, candidate := range validBulkOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request can still be quoted, rejected or cancelled.
func (s BulkOrderStatus) IsOpen() bool {
	return s == BulkOrderStatusPending || s == BulkOrderStatusQuoted
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
