package shipping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	svc, err := NewService(NewRepository(conn), client)
	require.NoError(t, err)
	return svc
}

func TestQuoteUsesRateOverride(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	region, err := svc.CreateRegion(ctx, RegionInput{Name: "Nairobi CBD", County: "Nairobi", Towns: []string{" Westlands ", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Westlands"}, region.Towns)

	method, err := svc.CreateMethod(ctx, MethodInput{Name: "Same day", BasePrice: decimal.RequireFromString("500"), Duration: "4h"})
	require.NoError(t, err)

	quote, err := svc.Quote(ctx, region.ID, method.ID)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, "4h", quote.Duration)

	rate, err := svc.UpsertRate(ctx, RateInput{RegionID: region.ID, MethodID: method.ID, CustomPrice: decimal.RequireFromString("350")})
	require.NoError(t, err)

	quote, err = svc.Quote(ctx, region.ID, method.ID)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("350")))

	// upserting the same pair updates in place
	again, err := svc.UpsertRate(ctx, RateInput{RegionID: region.ID, MethodID: method.ID, CustomPrice: decimal.RequireFromString("325")})
	require.NoError(t, err)
	assert.Equal(t, rate.ID, again.ID)

	rates, err := svc.ListRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 1)

	require.NoError(t, svc.DeactivateRate(ctx, rate.ID))
	quote, err = svc.Quote(ctx, region.ID, method.ID)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("500")))
}

func TestQuoteErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	region, err := svc.CreateRegion(ctx, RegionInput{Name: "Mombasa", County: "Mombasa"})
	require.NoError(t, err)

	_, err = svc.Quote(ctx, region.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Quote(ctx, uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.DeactivateRegion(ctx, region.ID))
	method, err := svc.CreateMethod(ctx, MethodInput{Name: "Standard", BasePrice: decimal.NewFromInt(200), Duration: "2d"})
	require.NoError(t, err)
	_, err = svc.Quote(ctx, region.ID, method.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQuoteRejectsInactiveMethod(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	region, err := svc.CreateRegion(ctx, RegionInput{Name: "Kisumu", County: "Kisumu"})
	require.NoError(t, err)
	method, err := svc.CreateMethod(ctx, MethodInput{Name: "Express", BasePrice: decimal.NewFromInt(300), Duration: "1d"})
	require.NoError(t, err)
	_, err = svc.UpsertRate(ctx, RateInput{RegionID: region.ID, MethodID: method.ID, CustomPrice: decimal.NewFromInt(250)})
	require.NoError(t, err)

	off := false
	_, err = svc.UpdateMethod(ctx, method.ID, MethodInput{Name: "Express", BasePrice: decimal.NewFromInt(300), Duration: "1d", Active: &off})
	require.NoError(t, err)

	_, err = svc.Quote(ctx, region.ID, method.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestRegionAndMethodAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	region, err := svc.CreateRegion(ctx, RegionInput{Name: "Kisumu", County: "Kisumu"})
	require.NoError(t, err)
	inactive := false
	updated, err := svc.UpdateRegion(ctx, region.ID, RegionInput{Name: "Kisumu Town", County: "Kisumu", Towns: []string{"Milimani"}, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Kisumu Town", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, []string{"Milimani"}, updated.Towns)

	active, err := svc.ListRegions(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.UpdateRegion(ctx, uuid.New(), RegionInput{Name: "x", County: "y"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.CreateMethod(ctx, MethodInput{Name: "Bad", BasePrice: decimal.NewFromInt(-1), Duration: "1d"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	method, err := svc.CreateMethod(ctx, MethodInput{Name: "Pickup", BasePrice: decimal.Zero, Duration: "same day"})
	require.NoError(t, err)
	renamed, err := svc.UpdateMethod(ctx, method.ID, MethodInput{Name: "Store pickup", BasePrice: decimal.NewFromInt(50), Duration: "same day"})
	require.NoError(t, err)
	assert.Equal(t, "Store pickup", renamed.Name)
	assert.True(t, renamed.BasePrice.Equal(decimal.NewFromInt(50)))

	_, err = svc.UpsertRate(ctx, RateInput{RegionID: uuid.New(), MethodID: method.ID, CustomPrice: decimal.NewFromInt(10)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
