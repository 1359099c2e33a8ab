package stockrequests

import (
	"sort"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
)

// BestBid returns the lowest price per unit. Equal prices go to the earliest
// bid. It returns false for an empty slice.
func BestBid(bids []models.Bid) (models.Bid, bool) {
	if len(bids) == 0 {
		return models.Bid{}, false
	}
	sorted := make([]models.Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PricePerUnit.Equal(sorted[j].PricePerUnit) {
			return sorted[i].PricePerUnit.LessThan(sorted[j].PricePerUnit)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted[0], true
}
