package router

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func lifecycleEntries() map[enums.OutboxEventType]entry {
	return map[enums.OutboxEventType]entry{
		enums.EventOrderCreated: {
			factory: func() any { return &payloads.OrderCreatedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.OrderCreatedEvent)
				return fields{Status: string(e.Status), Amount: money(e.Total)}
			},
		},
		enums.EventOrderStatusChanged: {
			factory: func() any { return &payloads.OrderStatusChangedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.OrderStatusChangedEvent)
				return fields{Status: string(e.To), Amount: money(e.Total)}
			},
		},
		enums.EventOrderRiderAssigned: {
			factory: func() any { return &payloads.OrderRiderAssignedEvent{} },
			mapper: func(any) fields {
				return fields{Status: string(enums.OrderStatusAssigned)}
			},
		},
		enums.EventOrderCancelled: {
			factory: func() any { return &payloads.OrderCancelledEvent{} },
			mapper: func(any) fields {
				return fields{Status: string(enums.OrderStatusCancelled)}
			},
		},
		enums.EventOrderPaymentUpdated: {
			factory: func() any { return &payloads.OrderPaymentUpdatedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.OrderPaymentUpdatedEvent)
				return fields{Status: "payment_" + string(e.To), Amount: money(e.Total)}
			},
		},
		enums.EventStockRequestAwarded: {
			factory: func() any { return &payloads.StockRequestAwardedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.StockRequestAwardedEvent)
				total := e.PricePerUnit.Mul(decimal.NewFromInt(int64(e.Quantity)))
				return fields{Status: string(enums.StockRequestStatusAwarded), Amount: money(total)}
			},
		},
		enums.EventStockRequestReceived: {
			factory: func() any { return &payloads.StockRequestReceivedEvent{} },
			mapper: func(any) fields {
				return fields{Status: string(enums.StockRequestStatusReceived)}
			},
		},
		enums.EventInvoiceCreated: {
			factory: func() any { return &payloads.InvoiceCreatedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.InvoiceCreatedEvent)
				return fields{Status: string(enums.InvoiceStatusSubmitted), Amount: money(e.TotalAmount)}
			},
		},
		enums.EventInvoiceStatusChanged: {
			factory: func() any { return &payloads.InvoiceStatusChangedEvent{} },
			mapper: func(p any) fields {
				e := p.(*payloads.InvoiceStatusChangedEvent)
				return fields{Status: string(e.To), Amount: money(e.TotalAmount)}
			},
		},
	}
}
