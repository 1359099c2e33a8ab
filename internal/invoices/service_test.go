package invoices

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/outboxtest"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type harness struct {
	svc      Service
	requests stockrequests.Service
	conn     *gorm.DB
	events   *outboxtest.Recorder
	supplier types.Actor
	other    types.Actor
	finance  types.Actor
	stores   types.Actor
	product  models.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	catalog, err := products.NewService(products.NewRepository(conn), client, nil, 0)
	require.NoError(t, err)
	events := &outboxtest.Recorder{}
	requests, err := stockrequests.NewService(stockrequests.ServiceParams{
		Repo: stockrequests.NewRepository(conn), Tx: client, Outbox: events, Inventory: catalog,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Tx: client, Outbox: events, StockRequests: requests})
	require.NoError(t, err)

	actor := func(role enums.Role) types.Actor {
		u := dbtest.SeedUser(t, conn, role, string(role))
		return types.Actor{UserID: u.ID, Role: role}
	}
	return &harness{
		svc:      svc,
		requests: requests,
		conn:     conn,
		events:   events,
		supplier: actor(enums.RoleSupplier),
		other:    actor(enums.RoleSupplier),
		finance:  actor(enums.RoleFinanceManager),
		stores:   actor(enums.RoleInventoryManager),
		product:  dbtest.SeedProduct(t, conn, "Mugs", "400"),
	}
}

// awarded walks a stock request to awaiting_fulfillment with h.supplier as winner.
func (h *harness) awarded(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	req, err := h.requests.Create(ctx, h.stores, stockrequests.CreateInput{ProductID: h.product.ID, RequestedQuantity: 12})
	require.NoError(t, err)
	withBid, err := h.requests.SubmitBid(ctx, h.supplier, req.ID, stockrequests.BidInput{PricePerUnit: dec("150"), TaxRate: dec("16")})
	require.NoError(t, err)
	_, err = h.requests.Award(ctx, h.finance, req.ID, withBid.Bids[0].ID)
	require.NoError(t, err)
	_, err = h.requests.AcknowledgeAward(ctx, h.supplier, req.ID)
	require.NoError(t, err)
	return req.ID
}

func TestCreateFulfilsStockRequestAtomically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID := h.awarded(t)

	input := CreateInput{
		StockRequestID: &requestID,
		Items:          []LineInput{{Description: "Mugs", Quantity: 12, UnitPrice: dec("150")}},
	}
	_, err := h.svc.Create(ctx, h.other, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	invoice, err := h.svc.Create(ctx, h.supplier, input)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusSubmitted, invoice.Status)
	assert.True(t, invoice.TaxRate.Equal(dec("16")), "tax rate defaults to the awarded bid")
	assert.True(t, invoice.SubTotal.Equal(dec("1800")))
	assert.True(t, invoice.TaxAmount.Equal(dec("288")))
	assert.True(t, invoice.TotalAmount.Equal(dec("2088")))
	assert.Regexp(t, `^INV-\d{6}-[0-9A-F]{8}$`, invoice.InvoiceNumber)

	req, err := h.requests.Get(ctx, h.finance, requestID)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusAwaitingReceipt, req.Status)
	assert.Equal(t, 12, *req.FulfilledQuantity)
	assert.Equal(t, invoice.ID, *req.InvoiceID)

	_, err = h.svc.Create(ctx, h.supplier, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "request already fulfilled")
}

func TestCreateRollsBackWhenFulfilmentFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID := h.awarded(t)

	h.events.Err = assert.AnError
	_, err := h.svc.Create(ctx, h.supplier, CreateInput{
		StockRequestID: &requestID,
		Items:          []LineInput{{Description: "Mugs", Quantity: 12, UnitPrice: dec("150")}},
	})
	require.Error(t, err)
	h.events.Err = nil

	var count int64
	require.NoError(t, h.conn.Model(&models.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	req, err := h.requests.Get(ctx, h.finance, requestID)
	require.NoError(t, err)
	assert.Equal(t, enums.StockRequestStatusAwaitingFulfillment, req.Status)
	assert.Nil(t, req.InvoiceID)
}

func TestReviewMoves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	invoice, err := h.svc.Create(ctx, h.supplier, CreateInput{
		Items: []LineInput{{Description: "Delivery crates", Quantity: 2, UnitPrice: dec("75.50")}},
	})
	require.NoError(t, err)
	assert.True(t, invoice.TaxAmount.IsZero())

	_, err = h.svc.Approve(ctx, h.supplier, invoice.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = h.svc.MarkPaid(ctx, h.finance, invoice.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	approved, err := h.svc.Approve(ctx, h.finance, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusApproved, approved.Status)
	assert.Equal(t, h.finance.UserID, *approved.ReviewedBy)

	_, err = h.svc.Reject(ctx, h.finance, invoice.ID, "late")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	paid, err := h.svc.MarkPaid(ctx, h.finance, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, enums.EventInvoiceStatusChanged, h.events.Last().EventType)
}

func TestSuppliersSeeOwnInvoices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	line := []LineInput{{Description: "Cards", Quantity: 1, UnitPrice: dec("20")}}
	mine, err := h.svc.Create(ctx, h.supplier, CreateInput{Items: line})
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, h.other, CreateInput{Items: line})
	require.NoError(t, err)

	page, err := h.svc.List(ctx, h.supplier, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	all, err := h.svc.List(ctx, h.finance, ListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = h.svc.Get(ctx, h.other, mine.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.List(ctx, h.stores, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
