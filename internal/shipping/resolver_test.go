package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

func TestResolvePrice(t *testing.T) {
	regionA, regionB := uuid.New(), uuid.New()
	standard := models.ShippingMethod{ID: uuid.New(), Name: "Standard", BasePrice: decimal.RequireFromString("300")}
	express := models.ShippingMethod{ID: uuid.New(), Name: "Express", BasePrice: decimal.RequireFromString("650")}
	methods := []models.ShippingMethod{standard, express}
	rates := []models.ShippingRate{
		{RegionID: regionA, MethodID: standard.ID, CustomPrice: decimal.RequireFromString("150"), Active: true},
		{RegionID: regionA, MethodID: express.ID, CustomPrice: decimal.RequireFromString("400"), Active: false},
	}

	cases := []struct {
		name   string
		region uuid.UUID
		method uuid.UUID
		want   string
	}{
		{"active custom rate", regionA, standard.ID, "150"},
		{"inactive rate falls back", regionA, express.ID, "650"},
		{"no rate for region", regionB, standard.ID, "300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolvePrice(tc.region, tc.method, rates, methods)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestResolvePriceUnknownMethod(t *testing.T) {
	_, err := ResolvePrice(uuid.New(), uuid.New(), nil, []models.ShippingMethod{{ID: uuid.New()}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResolvePriceEmptyRates(t *testing.T) {
	method := models.ShippingMethod{ID: uuid.New(), BasePrice: decimal.RequireFromString("99.50")}
	got, err := ResolvePrice(uuid.New(), method.ID, nil, []models.ShippingMethod{method})
	require.NoError(t, err)
	assert.Equal(t, "99.5", got.String())
}
