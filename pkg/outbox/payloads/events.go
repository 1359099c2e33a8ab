package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once checkout commits.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   int64               `json:"orderNumber"`
	CustomerID    uuid.UUID           `json:"customerId"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Total         decimal.Decimal     `json:"total"`
	BulkOrderID   *uuid.UUID          `json:"bulkOrderId,omitempty"`
}

// OrderStatusChangedEvent carries one edge of the order state machine.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber int64             `json:"orderNumber"`
	CustomerID  uuid.UUID         `json:"customerId"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	RiderID     *uuid.UUID        `json:"riderId,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Total       decimal.Decimal   `json:"total"`
}

// OrderRiderAssignedEvent is emitted on first assignment and on reassignment.
type OrderRiderAssignedEvent struct {
	OrderID         uuid.UUID         `json:"orderId"`
	OrderNumber     int64             `json:"orderNumber"`
	CustomerID      uuid.UUID         `json:"customerId"`
	From            enums.OrderStatus `json:"from"`
	RiderID         uuid.UUID         `json:"riderId"`
	RiderName       string            `json:"riderName"`
	PreviousRiderID *uuid.UUID        `json:"previousRiderId,omitempty"`
}

// OrderCancelledEvent reports a cancellation and the rider it released.
type OrderCancelledEvent struct {
	OrderID         uuid.UUID         `json:"orderId"`
	OrderNumber     int64             `json:"orderNumber"`
	CustomerID      uuid.UUID         `json:"customerId"`
	From            enums.OrderStatus `json:"from"`
	ReleasedRiderID *uuid.UUID        `json:"releasedRiderId,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	CancelledAt     time.Time         `json:"cancelledAt"`
}

type OrderRatedEvent struct {
	OrderID    uuid.UUID  `json:"orderId"`
	CustomerID uuid.UUID  `json:"customerId"`
	RiderID    *uuid.UUID `json:"riderId,omitempty"`
	Score      int        `json:"score"`
}

type OrderPaymentUpdatedEvent struct {
	OrderID    uuid.UUID           `json:"orderId"`
	CustomerID uuid.UUID           `json:"customerId"`
	From       enums.PaymentStatus `json:"from"`
	To         enums.PaymentStatus `json:"to"`
	Total      decimal.Decimal     `json:"total"`
}

type StockRequestCreatedEvent struct {
	StockRequestID    uuid.UUID `json:"stockRequestId"`
	ProductID         uuid.UUID `json:"productId"`
	ProductName       string    `json:"productName"`
	RequestedQuantity int       `json:"requestedQuantity"`
}

type BidSubmittedEvent struct {
	StockRequestID uuid.UUID                `json:"stockRequestId"`
	BidID          uuid.UUID                `json:"bidId"`
	SupplierID     uuid.UUID                `json:"supplierId"`
	PricePerUnit   decimal.Decimal          `json:"pricePerUnit"`
	Status         enums.StockRequestStatus `json:"status"`
}

// StockRequestAwardedEvent names the winning bid and supplier.
type StockRequestAwardedEvent struct {
	StockRequestID uuid.UUID       `json:"stockRequestId"`
	ProductName    string          `json:"productName"`
	BidID          uuid.UUID       `json:"bidId"`
	SupplierID     uuid.UUID       `json:"supplierId"`
	PricePerUnit   decimal.Decimal `json:"pricePerUnit"`
	Quantity       int             `json:"quantity"`
}

// StockRequestClosedEvent covers finance rejection and cancellation.
type StockRequestClosedEvent struct {
	StockRequestID uuid.UUID                `json:"stockRequestId"`
	From           enums.StockRequestStatus `json:"from"`
	Status         enums.StockRequestStatus `json:"status"`
	SupplierID     *uuid.UUID               `json:"supplierId,omitempty"`
	Reason         string                   `json:"reason,omitempty"`
}

type StockRequestReceivedEvent struct {
	StockRequestID   uuid.UUID  `json:"stockRequestId"`
	ProductID        uuid.UUID  `json:"productId"`
	SupplierID       *uuid.UUID `json:"supplierId,omitempty"`
	ReceivedQuantity int        `json:"receivedQuantity"`
	Discrepancy      int        `json:"discrepancy"`
}

type InvoiceCreatedEvent struct {
	InvoiceID      uuid.UUID       `json:"invoiceId"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	SupplierID     uuid.UUID       `json:"supplierId"`
	StockRequestID *uuid.UUID      `json:"stockRequestId,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

type InvoiceStatusChangedEvent struct {
	InvoiceID     uuid.UUID           `json:"invoiceId"`
	InvoiceNumber string              `json:"invoiceNumber"`
	SupplierID    uuid.UUID           `json:"supplierId"`
	From          enums.InvoiceStatus `json:"from"`
	To            enums.InvoiceStatus `json:"to"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
}

// FeedbackRepliedEvent is emitted for every reply after the opening message.
type FeedbackRepliedEvent struct {
	ThreadID   uuid.UUID  `json:"threadId"`
	CustomerID uuid.UUID  `json:"customerId"`
	Subject    string     `json:"subject"`
	AuthorID   uuid.UUID  `json:"authorId"`
	AuthorRole enums.Role `json:"authorRole"`
}

type TaskAssignedEvent struct {
	TaskID     uuid.UUID  `json:"taskId"`
	AssigneeID uuid.UUID  `json:"assigneeId"`
	Title      string     `json:"title"`
	OrderID    *uuid.UUID `json:"orderId,omitempty"`
}

type BulkOrderQuotedEvent struct {
	BulkOrderID uuid.UUID       `json:"bulkOrderId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	CompanyName string          `json:"companyName"`
	QuotedTotal decimal.Decimal `json:"quotedTotal"`
}
