package enums

import "fmt"

// StockRequestStatus tracks a replenishment request from bidding to receipt.
type StockRequestStatus string

const (
	StockRequestStatusPendingBids         StockRequestStatus = "pending_bids"
	StockRequestStatusPendingAward        StockRequestStatus = "pending_award"
	StockRequestStatusAwarded             StockRequestStatus = "awarded"
	StockRequestStatusAwaitingFulfillment StockRequestStatus = "awaiting_fulfillment"
	StockRequestStatusAwaitingReceipt     StockRequestStatus = "awaiting_receipt"
	StockRequestStatusReceived            StockRequestStatus = "received"
	StockRequestStatusRejectedFinance     StockRequestStatus = "rejected_finance"
	StockRequestStatusCancelled           StockRequestStatus = "cancelled"
)

var validStockRequestStatuses = []StockRequestStatus{
	StockRequestStatusPendingBids,
	StockRequestStatusPendingAward,
	StockRequestStatusAwarded,
	StockRequestStatusAwaitingFulfillment,
	StockRequestStatusAwaitingReceipt,
	StockRequestStatusReceived,
	StockRequestStatusRejectedFinance,
	StockRequestStatusCancelled,
}

func (s StockRequestStatus) String() string {
	return string(s)
}

func (s StockRequestStatus) IsValid() bool {
	for _, candidate := range validStockRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request is closed.
func (s StockRequestStatus) IsTerminal() bool {
	switch s {
	case StockRequestStatusReceived, StockRequestStatusRejectedFinance, StockRequestStatusCancelled:
		return true
	}
	return false
}

// AcceptsBids reports whether suppliers may still append bids.
func (s StockRequestStatus) AcceptsBids() bool {
	return s == StockRequestStatusPendingBids || s == StockRequestStatusPendingAward
}

// ParseStockRequestStatus converts raw input into a StockRequestStatus.
func ParseStockRequestStatus(value string) (StockRequestStatus, error) {
	for _, candidate := range validStockRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock request status %q", value)
}
