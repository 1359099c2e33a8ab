package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type stubLookup struct {
	order *models.Order
	err   error
}

func (s stubLookup) Lookup(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func giftOrder(canTrack, showPrices bool) *models.Order {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: 1042,
		Status:      enums.OrderStatusAssigned,
		Total:       decimal.RequireFromString("3800"),
		GiftDetails: &types.GiftDetails{
			RecipientName:            "Wanjiru Kamau",
			Message:                  "Happy birthday",
			RecipientCanViewAndTrack: canTrack,
			ShowPricesToRecipient:    showPrices,
		},
		Items: []models.OrderItem{{
			ProductName: "Rose Box",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("1750"),
			LineTotal:   decimal.RequireFromString("3500"),
		}},
		History: []models.OrderHistoryEntry{
			{Status: enums.OrderStatusPending, CreatedAt: at},
			{Status: enums.OrderStatusAssigned, CreatedAt: at.Add(time.Hour)},
		},
	}
}

func TestTrackReducedView(t *testing.T) {
	svc, err := NewService(stubLookup{order: giftOrder(true, false)})
	require.NoError(t, err)

	view, err := svc.Track(context.Background(), uuid.New(), ContextGiftRecipient)
	require.NoError(t, err)
	assert.Equal(t, int64(1042), view.OrderNumber)
	assert.Equal(t, "Wanjiru", view.RecipientName)
	assert.Equal(t, "Happy birthday", view.GiftMessage)
	require.Len(t, view.Items, 1)
	assert.Nil(t, view.Items[0].UnitPrice)
	assert.Equal(t, 2, view.Items[0].Quantity)
	require.Len(t, view.History, 2)
	assert.Equal(t, enums.OrderStatusAssigned, view.History[1].Status)
}

func TestTrackShowsPricesWhenAllowed(t *testing.T) {
	svc, _ := NewService(stubLookup{order: giftOrder(true, true)})
	view, err := svc.Track(context.Background(), uuid.New(), ContextGiftRecipient)
	require.NoError(t, err)
	require.NotNil(t, view.Items[0].UnitPrice)
	assert.Equal(t, "3500.00", view.Items[0].LineTotal.StringFixed(2))
}

func TestTrackRefusalsAreNotFound(t *testing.T) {
	cases := map[string]struct {
		lookup stubLookup
		ctx    string
	}{
		"wrong ctx":     {stubLookup{order: giftOrder(true, true)}, "customer"},
		"empty ctx":     {stubLookup{order: giftOrder(true, true)}, ""},
		"tracking off":  {stubLookup{order: giftOrder(false, true)}, ContextGiftRecipient},
		"not a gift":    {stubLookup{order: &models.Order{}}, ContextGiftRecipient},
		"missing order": {stubLookup{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}, ContextGiftRecipient},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := NewService(tc.lookup)
			_, err := svc.Track(context.Background(), uuid.New(), tc.ctx)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
		})
	}
}
