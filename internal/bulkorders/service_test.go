package bulkorders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/outboxtest"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type harness struct {
	svc      Service
	orders   orders.Service
	conn     *gorm.DB
	events   *outboxtest.Recorder
	customer types.Actor
	support  types.Actor
	input    SubmitInput
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	catalog, err := products.NewService(products.NewRepository(conn), client, nil, 0)
	require.NoError(t, err)
	resolver, err := shipping.NewService(shipping.NewRepository(conn), client)
	require.NoError(t, err)
	events := &outboxtest.Recorder{}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo: orders.NewRepository(conn), Tx: client, Outbox: events, Catalog: catalog, Shipping: resolver,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Tx: client, Outbox: events, Catalog: catalog, Orders: orderSvc})
	require.NoError(t, err)

	customer := dbtest.SeedUser(t, conn, enums.RoleCustomer, "Corporate buyer")
	support := dbtest.SeedUser(t, conn, enums.RoleCustomerService, "Support")
	mug := dbtest.SeedProduct(t, conn, "Branded mug", "600")
	pen := dbtest.SeedProduct(t, conn, "Pen", "80")
	region, method := dbtest.SeedShipping(t, conn, "1000")

	return &harness{
		svc:      svc,
		orders:   orderSvc,
		conn:     conn,
		events:   events,
		customer: types.Actor{UserID: customer.ID, Role: enums.RoleCustomer},
		support:  types.Actor{UserID: support.ID, Role: enums.RoleCustomerService},
		input: SubmitInput{
			CompanyName:  "Safari Ltd",
			ContactName:  "Njeri",
			ContactPhone: "+254700000000",
			ContactEmail: "Njeri@Safari.example",
			Items: []types.BulkOrderLine{
				{ProductID: mug.ID, Quantity: 100, Notes: "logo front"},
				{ProductID: pen.ID, Quantity: 200},
			},
			ShippingAddress:  types.ShippingAddress{Line1: "Upper Hill", Town: "Nairobi", County: "Nairobi"},
			ShippingRegionID: region.ID,
			ShippingMethodID: method.ID,
			PaymentMethod:    enums.PaymentMethodMpesa,
		},
	}
}

func (h *harness) quote(t *testing.T, id uuid.UUID) *BulkOrderDTO {
	t.Helper()
	quoted, err := h.svc.Quote(context.Background(), h.support, id, QuoteInput{
		UnitPrices: map[uuid.UUID]decimal.Decimal{
			h.input.Items[0].ProductID: decimal.RequireFromString("500"),
			h.input.Items[1].ProductID: decimal.RequireFromString("60"),
		},
	})
	require.NoError(t, err)
	return quoted
}

func TestQuoteAndConfirmCreatesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	submitted, err := h.svc.Submit(ctx, h.customer, h.input)
	require.NoError(t, err)
	assert.Equal(t, enums.BulkOrderStatusPending, submitted.Status)
	assert.Equal(t, "njeri@safari.example", submitted.ContactEmail)

	_, err = h.svc.Confirm(ctx, h.customer, submitted.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "cannot confirm before quote")

	_, err = h.svc.Quote(ctx, h.support, submitted.ID, QuoteInput{
		UnitPrices: map[uuid.UUID]decimal.Decimal{h.input.Items[0].ProductID: decimal.NewFromInt(500)},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "every product needs a price")

	quoted := h.quote(t, submitted.ID)
	assert.Equal(t, enums.BulkOrderStatusQuoted, quoted.Status)
	assert.True(t, quoted.QuotedTotal.Equal(decimal.RequireFromString("62000")))
	assert.Equal(t, enums.EventBulkOrderQuoted, h.events.Last().EventType)

	confirmed, err := h.svc.Confirm(ctx, h.customer, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BulkOrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.OrderID)

	order, err := h.orders.Get(ctx, h.customer, *confirmed.OrderID)
	require.NoError(t, err)
	assert.True(t, order.SubTotal.Equal(decimal.RequireFromString("62000")))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("63000")))
	assert.Equal(t, submitted.ID, *order.BulkOrderRequestID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Len(t, order.DeliveryHistory, 1)

	_, err = h.svc.Cancel(ctx, h.customer, submitted.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmRollsBackWhenOrderFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	submitted, err := h.svc.Submit(ctx, h.customer, h.input)
	require.NoError(t, err)
	h.quote(t, submitted.ID)

	// a retired region makes order creation fail
	require.NoError(t, h.conn.Model(&models.ShippingRegion{}).Where("id = ?", h.input.ShippingRegionID).Update("active", false).Error)

	_, err = h.svc.Confirm(ctx, h.customer, submitted.ID)
	require.Error(t, err)

	still, err := h.svc.Get(ctx, h.customer, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BulkOrderStatusQuoted, still.Status)
	assert.Nil(t, still.OrderID)

	var count int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRejectCancelAndVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.svc.Submit(ctx, h.customer, h.input)
	require.NoError(t, err)
	second, err := h.svc.Submit(ctx, h.customer, h.input)
	require.NoError(t, err)

	_, err = h.svc.Reject(ctx, h.customer, first.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	rejected, err := h.svc.Reject(ctx, h.support, first.ID, "out of season")
	require.NoError(t, err)
	assert.Equal(t, enums.BulkOrderStatusRejected, rejected.Status)
	assert.Equal(t, "out of season", *rejected.AdminNotes)

	h.quote(t, second.ID)
	cancelled, err := h.svc.Cancel(ctx, h.customer, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BulkOrderStatusCancelled, cancelled.Status)

	other := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err = h.svc.Get(ctx, other, first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	page, err := h.svc.List(ctx, other, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	all, err := h.svc.List(ctx, h.support, ListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = h.svc.Submit(ctx, h.support, h.input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
