package types

import "time"

type SummaryRequest struct {
	Since time.Time
	Until time.Time
}

type StatusCount struct {
	Status string `json:"status"`
	Orders int64  `json:"orders"`
}

// Summary is the finance dashboard view over the lifecycle table.
type Summary struct {
	Since          time.Time     `json:"since"`
	Until          time.Time     `json:"until"`
	OrdersByStatus []StatusCount `json:"orders_by_status"`
	OrdersCreated  int64         `json:"orders_created"`
	Revenue        string        `json:"revenue"`
	InvoicesPaid   string        `json:"invoices_paid"`
}
