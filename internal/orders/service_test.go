package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/outboxtest"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type fixture struct {
	svc      Service
	client   *db.Client
	conn     *gorm.DB
	events   *outboxtest.Recorder
	customer types.Actor
	admin    types.Actor
	dispatch types.Actor
	rider    models.User
	product  models.Product
	region   models.ShippingRegion
	method   models.ShippingMethod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)

	catalog, err := products.NewService(products.NewRepository(conn), client, nil, 0)
	require.NoError(t, err)
	resolver, err := shipping.NewService(shipping.NewRepository(conn), client)
	require.NoError(t, err)
	events := &outboxtest.Recorder{}

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       client,
		Outbox:   events,
		Catalog:  catalog,
		Shipping: resolver,
	})
	require.NoError(t, err)

	customer := dbtest.SeedUser(t, conn, enums.RoleCustomer, "Wanjiru")
	admin := dbtest.SeedUser(t, conn, enums.RoleAdmin, "Admin")
	dispatch := dbtest.SeedUser(t, conn, enums.RoleDispatchManager, "Dispatch")
	rider := dbtest.SeedUser(t, conn, enums.RoleRider, "Otieno")
	product := dbtest.SeedProduct(t, conn, "Hamper", "1500")
	region, method := dbtest.SeedShipping(t, conn, "300")

	return &fixture{
		svc:      svc,
		client:   client,
		conn:     conn,
		events:   events,
		customer: types.Actor{UserID: customer.ID, Role: enums.RoleCustomer},
		admin:    types.Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		dispatch: types.Actor{UserID: dispatch.ID, Role: enums.RoleDispatchManager},
		rider:    rider,
		product:  product,
		region:   region,
		method:   method,
	}
}

func (f *fixture) checkout(t *testing.T, qty int) *OrderDTO {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.customer, CreateOrderInput{
		Items:            []ItemInput{{ProductID: f.product.ID, Quantity: qty}},
		PaymentMethod:    enums.PaymentMethodMpesa,
		ShippingAddress:  types.ShippingAddress{Line1: "Kimathi St", Town: "Nairobi", County: "Nairobi"},
		ShippingRegionID: f.region.ID,
		ShippingMethodID: f.method.ID,
		GiftDetails:      &types.GiftDetails{RecipientName: "Amina Odhiambo", RecipientCanViewAndTrack: true},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) walkTo(t *testing.T, orderID uuid.UUID, statuses ...enums.OrderStatus) *OrderDTO {
	t.Helper()
	var out *OrderDTO
	for _, status := range statuses {
		var err error
		out, err = f.svc.Transition(context.Background(), f.admin, orderID, status, "")
		require.NoError(t, err)
	}
	return out
}

func assertHistoryTracksStatus(t *testing.T, order *OrderDTO) {
	t.Helper()
	require.NotEmpty(t, order.DeliveryHistory)
	assert.Equal(t, enums.OrderStatusPending, order.DeliveryHistory[0].Status)
	assert.Equal(t, order.Status, order.DeliveryHistory[len(order.DeliveryHistory)-1].Status)
}

func TestCreatePricesItemsAndWritesHistory(t *testing.T) {
	f := newFixture(t)
	extra := decimal.RequireFromString("250")
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", f.product.ID).
		Update("customization_options", types.CustomizationOptions{
			{Name: "Engraving", Type: enums.CustomizationOptionText, Required: true, ExtraPrice: extra},
		}).Error)

	ctx := context.Background()
	input := CreateOrderInput{
		Items:            []ItemInput{{ProductID: f.product.ID, Quantity: 2}},
		PaymentMethod:    enums.PaymentMethodCard,
		ShippingAddress:  types.ShippingAddress{Line1: "Moi Ave", Town: "Nairobi", County: "Nairobi"},
		ShippingRegionID: f.region.ID,
		ShippingMethodID: f.method.ID,
	}
	_, err := f.svc.Create(ctx, f.customer, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing required customization: %v", err)

	input.Items[0].Customizations = map[string]string{"Engraving": "For Mum"}
	order, err := f.svc.Create(ctx, f.customer, input)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "Wanjiru", order.CustomerName)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("1750")))
	assert.True(t, order.SubTotal.Equal(decimal.RequireFromString("3500")))
	assert.True(t, order.ShippingCost.Equal(decimal.RequireFromString("300")))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("3800")))
	assert.Len(t, order.DeliveryHistory, 1)
	assertHistoryTracksStatus(t, order)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderCreated}, f.events.Types())

	_, err = f.svc.Create(ctx, f.admin, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestTransitionGuardsEdgesAndAppendsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)

	_, err := f.svc.Transition(ctx, f.admin, order.ID, enums.OrderStatusDelivered, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	tech := types.Actor{UserID: uuid.New(), Role: enums.RoleTechnician}
	_, err = f.svc.Transition(ctx, tech, order.ID, enums.OrderStatusProcessing, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	updated := f.walkTo(t, order.ID, enums.OrderStatusProcessing, enums.OrderStatusPendingFinanceApproval)
	assert.Equal(t, enums.OrderStatusPendingFinanceApproval, updated.Status)
	assert.Len(t, updated.DeliveryHistory, 3)
	assertHistoryTracksStatus(t, updated)

	finance := types.Actor{UserID: uuid.New(), Role: enums.RoleFinanceManager}
	updated, err = f.svc.Transition(ctx, finance, order.ID, enums.OrderStatusAwaitingAssignment, "approved")
	require.NoError(t, err)
	last := updated.DeliveryHistory[len(updated.DeliveryHistory)-1]
	require.NotNil(t, last.Notes)
	assert.Equal(t, "approved", *last.Notes)
	assert.Equal(t, enums.RoleFinanceManager, last.ActorRole)
	assertHistoryTracksStatus(t, updated)
}

func TestAssignRiderAndDeliver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)

	_, err := f.svc.AssignRider(ctx, f.dispatch, order.ID, f.rider.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "cannot assign before awaiting_assignment")

	f.walkTo(t, order.ID, enums.OrderStatusProcessing, enums.OrderStatusAwaitingAssignment)

	customer := dbtest.SeedUser(t, f.conn, enums.RoleCustomer, "Not a rider")
	_, err = f.svc.AssignRider(ctx, f.dispatch, order.ID, customer.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assigned, err := f.svc.AssignRider(ctx, f.dispatch, order.ID, f.rider.ID, "morning run")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.RiderID)
	assert.Equal(t, f.rider.ID, *assigned.RiderID)
	assert.Equal(t, "Otieno", *assigned.RiderName)

	// reassignment appends another assigned entry
	second := dbtest.SeedUser(t, f.conn, enums.RoleRider, "Kamau")
	reassigned, err := f.svc.AssignRider(ctx, f.dispatch, order.ID, second.ID, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, *reassigned.RiderID)
	assert.Len(t, reassigned.DeliveryHistory, len(assigned.DeliveryHistory)+1)
	assertHistoryTracksStatus(t, reassigned)

	riderActor := types.Actor{UserID: f.rider.ID, Role: enums.RoleRider}
	_, err = f.svc.Transition(ctx, riderActor, order.ID, enums.OrderStatusOutForDelivery, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "previous rider no longer assigned")

	secondActor := types.Actor{UserID: second.ID, Role: enums.RoleRider}
	_, err = f.svc.Transition(ctx, secondActor, order.ID, enums.OrderStatusOutForDelivery, "")
	require.NoError(t, err)
	delivered, err := f.svc.Transition(ctx, secondActor, order.ID, enums.OrderStatusDelivered, "left at gate")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	assertHistoryTracksStatus(t, delivered)

	loads, err := f.svc.RiderLoads(ctx, []uuid.UUID{second.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, loads[second.ID])
}

func TestCancelAssignedOrderReleasesRider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)
	f.walkTo(t, order.ID, enums.OrderStatusProcessing, enums.OrderStatusAwaitingAssignment)
	_, err := f.svc.AssignRider(ctx, f.dispatch, order.ID, f.rider.ID, "")
	require.NoError(t, err)

	loads, err := f.svc.RiderLoads(ctx, []uuid.UUID{f.rider.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, loads[f.rider.ID])

	_, err = f.svc.Cancel(ctx, f.customer, order.ID, "changed my mind")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "customer may only cancel pending")

	cancelled, err := f.svc.Cancel(ctx, f.dispatch, order.ID, "address unreachable")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.RiderID)
	assert.Nil(t, cancelled.RiderName)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.DeliveryHistory[len(cancelled.DeliveryHistory)-1].Status)
	assert.Equal(t, enums.EventOrderCancelled, f.events.Last().EventType)

	_, err = f.svc.Cancel(ctx, f.admin, order.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.AssignRider(ctx, f.dispatch, order.ID, f.rider.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRateOnlyOnceByOwnerAfterDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)

	_, err := f.svc.Rate(ctx, f.customer, order.ID, 5, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	f.walkTo(t, order.ID, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	stranger := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err = f.svc.Rate(ctx, stranger, order.ID, 5, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Rate(ctx, f.customer, order.ID, 6, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rated, err := f.svc.Rate(ctx, f.customer, order.ID, 4, " lovely ")
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, rated.Rating.Score)
	assert.Equal(t, "lovely", rated.Rating.Comment)
	assert.Equal(t, enums.OrderStatusDelivered, rated.Status)

	_, err = f.svc.Rate(ctx, f.customer, order.ID, 1, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestSetColorAndPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)

	_, err := f.svc.SetColor(ctx, f.customer, order.ID, "#ff0000")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.SetColor(ctx, f.dispatch, order.ID, "red")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	tagged, err := f.svc.SetColor(ctx, f.dispatch, order.ID, "#FF8800")
	require.NoError(t, err)
	require.NotNil(t, tagged.Color)
	assert.Equal(t, "#ff8800", *tagged.Color)

	cleared, err := f.svc.SetColor(ctx, f.dispatch, order.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Color)

	finance := types.Actor{UserID: uuid.New(), Role: enums.RoleFinanceManager}
	_, err = f.svc.UpdatePayment(ctx, f.dispatch, order.ID, enums.PaymentStatusPaid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.UpdatePayment(ctx, finance, order.ID, enums.PaymentStatusRefunded)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	paid, err := f.svc.UpdatePayment(ctx, finance, order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, enums.EventOrderPaymentUpdated, f.events.Last().EventType)
}

func TestVisibilityRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)
	f.checkout(t, 2)

	other := types.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err := f.svc.Get(ctx, other, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	riderActor := types.Actor{UserID: f.rider.ID, Role: enums.RoleRider}
	_, err = f.svc.Get(ctx, riderActor, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	mine, err := f.svc.List(ctx, f.customer, ListParams{})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)

	theirs, err := f.svc.List(ctx, other, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)

	assigned, err := f.svc.List(ctx, riderActor, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, assigned.Items)

	page, err := f.svc.List(ctx, f.admin, ListParams{Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	supplier := types.Actor{UserID: uuid.New(), Role: enums.RoleSupplier}
	_, err = f.svc.List(ctx, supplier, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	history, err := f.svc.History(ctx, f.customer, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestStaleUnpaidAndSystemCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.checkout(t, 1)

	ids, err := f.svc.StaleUnpaid(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{order.ID}, ids)

	ids, err = f.svc.StaleUnpaid(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	cancelled, err := f.svc.Cancel(ctx, types.SystemActor(), order.ID, "unpaid")
	require.NoError(t, err)
	last := cancelled.DeliveryHistory[len(cancelled.DeliveryHistory)-1]
	assert.Equal(t, enums.RoleSystem, last.ActorRole)
	assert.Nil(t, last.ActorID)
}

func TestCreateFromBulkUsesQuotedPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulkID := uuid.New()

	var created *models.Order
	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = f.svc.CreateFromBulk(ctx, tx, f.customer, f.customer.UserID, BulkOrderInput{
			BulkOrderRequestID: bulkID,
			Items:              []BulkItem{{ProductID: f.product.ID, Quantity: 30, UnitPrice: decimal.RequireFromString("1200"), Notes: "corporate logo"}},
			PaymentMethod:      enums.PaymentMethodCOD,
			ShippingAddress:    types.ShippingAddress{Line1: "Ngong Rd", Town: "Nairobi", County: "Nairobi"},
			ShippingRegionID:   f.region.ID,
			ShippingMethodID:   f.method.ID,
		})
		return err
	})
	require.NoError(t, err)

	order, err := f.svc.Get(ctx, f.customer, created.ID)
	require.NoError(t, err)
	assert.True(t, order.SubTotal.Equal(decimal.RequireFromString("36000")))
	require.NotNil(t, order.BulkOrderRequestID)
	assert.Equal(t, bulkID, *order.BulkOrderRequestID)
	assert.Equal(t, "corporate logo", order.Items[0].Customizations["notes"])
}
