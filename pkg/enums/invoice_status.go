package enums

import "fmt"

// InvoiceStatus tracks finance review of a supplier invoice.
type InvoiceStatus string

const (
	InvoiceStatusSubmitted InvoiceStatus = "submitted"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusSubmitted,
	InvoiceStatusApproved,
	InvoiceStatusPaid,
	InvoiceStatusRejected,
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
