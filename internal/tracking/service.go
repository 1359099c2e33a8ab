package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

// ContextGiftRecipient is the only ctx value the public link accepts.
const ContextGiftRecipient = "gift_recipient"

// OrderLookup reads an order with items and history.
type OrderLookup interface {
	Lookup(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type Service interface {
	Track(ctx context.Context, orderID uuid.UUID, viewContext string) (*View, error)
}

type View struct {
	OrderNumber   int64             `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	RecipientName string            `json:"recipient_first_name"`
	GiftMessage   string            `json:"gift_message,omitempty"`
	Items         []Item            `json:"items"`
	History       []Step            `json:"history"`
}

type Item struct {
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal *decimal.Decimal `json:"line_total,omitempty"`
}

type Step struct {
	Status    enums.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

type service struct {
	orders OrderLookup
}

func NewService(orders OrderLookup) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order lookup required")
	}
	return &service{orders: orders}, nil
}

// Track answers NOT_FOUND for every refusal so a link never confirms that an
// order exists.
func (s *service) Track(ctx context.Context, orderID uuid.UUID, viewContext string) (*View, error) {
	if viewContext != ContextGiftRecipient {
		return nil, notFound()
	}
	order, err := s.orders.Lookup(ctx, orderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, notFound()
		}
		return nil, err
	}
	if order.GiftDetails == nil || !order.GiftDetails.RecipientCanViewAndTrack {
		return nil, notFound()
	}
	return buildView(order), nil
}

func buildView(order *models.Order) *View {
	gift := order.GiftDetails
	view := &View{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		RecipientName: gift.RecipientFirstName(),
		GiftMessage:   gift.Message,
		Items:         make([]Item, 0, len(order.Items)),
		History:       make([]Step, 0, len(order.History)),
	}
	for _, line := range order.Items {
		item := Item{Name: line.ProductName, Quantity: line.Quantity}
		if gift.ShowPricesToRecipient {
			unit, total := line.UnitPrice, line.LineTotal
			item.UnitPrice = &unit
			item.LineTotal = &total
		}
		view.Items = append(view.Items, item)
	}
	for _, entry := range order.History {
		view.History = append(view.History, Step{Status: entry.Status, Timestamp: entry.CreatedAt})
	}
	return view
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
