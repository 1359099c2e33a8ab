package enums

import "fmt"

// PaymentStatus records whether an order has been paid for.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// UnsettledPaymentStatuses are the states in which money is still owed.
var UnsettledPaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Unsettled is true while the order is still waiting on a successful payment.
func (p PaymentStatus) Unsettled() bool {
	return p == PaymentStatusPending || p == PaymentStatusFailed
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if p := PaymentStatus(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentMethod is the channel a customer chose at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodMpesa PaymentMethod = "mpesa"
	PaymentMethodCard  PaymentMethod = "card"
)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCOD, PaymentMethodMpesa, PaymentMethodCard:
		return true
	}
	return false
}

// PrepaidOnly reports whether the order must be paid before dispatch.
// Cash on delivery is collected by the rider instead.
func (p PaymentMethod) PrepaidOnly() bool {
	return p != PaymentMethodCOD
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if p := PaymentMethod(value); p.IsValid() {
		return p, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
