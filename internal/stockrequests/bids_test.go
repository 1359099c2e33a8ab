package stockrequests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
)

func TestBestBidPicksLowestThenEarliest(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bid := func(price string, offset time.Duration) models.Bid {
		return models.Bid{ID: uuid.New(), PricePerUnit: decimal.RequireFromString(price), CreatedAt: base.Add(offset)}
	}
	late := bid("95.00", 2*time.Hour)
	early := bid("95.00", time.Hour)
	high := bid("120.00", 0)

	best, ok := BestBid([]models.Bid{high, late, early})
	if !ok {
		t.Fatalf("expected a best bid")
	}
	if best.ID != early.ID {
		t.Fatalf("expected earliest of the cheapest bids, got %s at %s", best.PricePerUnit, best.CreatedAt)
	}

	if _, ok := BestBid(nil); ok {
		t.Fatalf("expected no best bid for empty input")
	}
}

func TestBestBidLeavesInputOrder(t *testing.T) {
	a := models.Bid{ID: uuid.New(), PricePerUnit: decimal.NewFromInt(10)}
	b := models.Bid{ID: uuid.New(), PricePerUnit: decimal.NewFromInt(5)}
	bids := []models.Bid{a, b}
	BestBid(bids)
	if bids[0].ID != a.ID {
		t.Fatalf("input slice was reordered")
	}
}
