package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
)

// errMalformed marks payloads that will never decode; they are acked.
type errMalformed struct{ err error }

func (e errMalformed) Error() string { return "malformed payload: " + e.err.Error() }
func (e errMalformed) Unwrap() error { return e.err }

// RoleDirectory resolves fan-out recipients.
type RoleDirectory interface {
	ActiveUsersByRole(ctx context.Context, role enums.Role) ([]uuid.UUID, error)
}

type draft struct {
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// rule turns one event payload into notifications. A nil slice means the
// event needs no notification.
type rule func(ctx context.Context, dir RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error)

var rules = map[enums.OutboxEventType]rule{
	enums.EventOrderRiderAssigned:  riderAssigned,
	enums.EventOrderStatusChanged:  orderStatusChanged,
	enums.EventOrderCancelled:      orderCancelled,
	enums.EventStockRequestAwarded: bidAwarded,
	enums.EventInvoiceCreated:      invoiceCreated,
	enums.EventFeedbackReplied:     feedbackReplied,
	enums.EventTaskAssigned:        taskAssigned,
}

// Handles reports whether the consumer creates notifications for eventType.
func Handles(eventType enums.OutboxEventType) bool {
	_, ok := rules[eventType]
	return ok
}

func build(ctx context.Context, dir RoleDirectory, eventType enums.OutboxEventType, eventID uuid.UUID, data json.RawMessage) ([]models.Notification, error) {
	fn, ok := rules[eventType]
	if !ok {
		return nil, nil
	}
	recipients, d, err := fn(ctx, dir, data)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(recipients))
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, userID := range recipients {
		if userID == uuid.Nil {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		n := models.Notification{
			UserID:  userID,
			Type:    d.Type,
			Title:   d.Title,
			Message: d.Message,
			EventID: &eventID,
		}
		if d.Link != "" {
			link := d.Link
			n.Link = &link
		}
		out = append(out, n)
	}
	return out, nil
}

func decode(data json.RawMessage, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return errMalformed{err: err}
	}
	return nil
}

func riderAssigned(_ context.Context, _ RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.OrderRiderAssignedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	return []uuid.UUID{p.RiderID}, draft{
		Type:    enums.NotificationTypeRiderAssigned,
		Title:   "New delivery assigned",
		Message: fmt.Sprintf("Order #%d has been assigned to you.", p.OrderNumber),
		Link:    fmt.Sprintf("/rider/orders/%s", p.OrderID),
	}, nil
}

func orderStatusChanged(_ context.Context, _ RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.OrderStatusChangedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	return []uuid.UUID{p.CustomerID}, draft{
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "Order updated",
		Message: fmt.Sprintf("Order #%d is now %s.", p.OrderNumber, humanize(string(p.To))),
		Link:    fmt.Sprintf("/orders/%s", p.OrderID),
	}, nil
}

func orderCancelled(_ context.Context, _ RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.OrderCancelledEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	msg := fmt.Sprintf("Order #%d was cancelled.", p.OrderNumber)
	if p.Reason != "" {
		msg = fmt.Sprintf("Order #%d was cancelled: %s", p.OrderNumber, p.Reason)
	}
	return []uuid.UUID{p.CustomerID}, draft{
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "Order cancelled",
		Message: msg,
		Link:    fmt.Sprintf("/orders/%s", p.OrderID),
	}, nil
}

func bidAwarded(_ context.Context, _ RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.StockRequestAwardedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	return []uuid.UUID{p.SupplierID}, draft{
		Type:    enums.NotificationTypeBidAwarded,
		Title:   "Bid awarded",
		Message: fmt.Sprintf("Your bid for %d x %s at %s per unit was accepted.", p.Quantity, p.ProductName, p.PricePerUnit.StringFixed(2)),
		Link:    fmt.Sprintf("/supplier/stock-requests/%s", p.StockRequestID),
	}, nil
}

func invoiceCreated(ctx context.Context, dir RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.InvoiceCreatedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	finance, err := dir.ActiveUsersByRole(ctx, enums.RoleFinanceManager)
	if err != nil {
		return nil, draft{}, fmt.Errorf("load finance users: %w", err)
	}
	return finance, draft{
		Type:    enums.NotificationTypeInvoice,
		Title:   "Invoice submitted",
		Message: fmt.Sprintf("Invoice %s for %s awaits review.", p.InvoiceNumber, p.TotalAmount.StringFixed(2)),
		Link:    fmt.Sprintf("/finance/invoices/%s", p.InvoiceID),
	}, nil
}

// feedbackReplied notifies the customer of staff replies, and support staff
// of customer replies.
func feedbackReplied(ctx context.Context, dir RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.FeedbackRepliedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	d := draft{
		Type:    enums.NotificationTypeFeedback,
		Title:   "New reply",
		Message: fmt.Sprintf("New reply on \"%s\".", p.Subject),
		Link:    fmt.Sprintf("/feedback/%s", p.ThreadID),
	}
	if p.AuthorRole != enums.RoleCustomer {
		return []uuid.UUID{p.CustomerID}, d, nil
	}
	support, err := dir.ActiveUsersByRole(ctx, enums.RoleCustomerService)
	if err != nil {
		return nil, draft{}, fmt.Errorf("load support users: %w", err)
	}
	return support, d, nil
}

func taskAssigned(_ context.Context, _ RoleDirectory, data json.RawMessage) ([]uuid.UUID, draft, error) {
	var p payloads.TaskAssignedEvent
	if err := decode(data, &p); err != nil {
		return nil, draft{}, err
	}
	return []uuid.UUID{p.AssigneeID}, draft{
		Type:    enums.NotificationTypeTask,
		Title:   "Task assigned",
		Message: p.Title,
		Link:    fmt.Sprintf("/tasks/%s", p.TaskID),
	}, nil
}

func humanize(status string) string {
	out := []byte(status)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
