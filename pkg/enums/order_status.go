package enums

import "fmt"

// OrderStatus tracks where an order sits in its fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending                OrderStatus = "pending"
	OrderStatusProcessing             OrderStatus = "processing"
	OrderStatusPendingFinanceApproval OrderStatus = "pending_finance_approval"
	OrderStatusAwaitingAssignment     OrderStatus = "awaiting_assignment"
	OrderStatusAssigned               OrderStatus = "assigned"
	OrderStatusOutForDelivery         OrderStatus = "out_for_delivery"
	OrderStatusDeliveryAttempted      OrderStatus = "delivery_attempted"
	OrderStatusDelivered              OrderStatus = "delivered"
	OrderStatusShipped                OrderStatus = "shipped"
	OrderStatusCancelled              OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPendingFinanceApproval,
	OrderStatusAwaitingAssignment,
	OrderStatusAssigned,
	OrderStatusOutForDelivery,
	OrderStatusDeliveryAttempted,
	OrderStatusDelivered,
	OrderStatusShipped,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
