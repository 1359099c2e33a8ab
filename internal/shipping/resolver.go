package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

// ResolvePrice returns the custom price of the active rate for the
// (region, method) pair, falling back to the method's base price.
func ResolvePrice(regionID, methodID uuid.UUID, rates []models.ShippingRate, methods []models.ShippingMethod) (decimal.Decimal, error) {
	var method *models.ShippingMethod
	for i := range methods {
		if methods[i].ID == methodID {
			method = &methods[i]
			break
		}
	}
	if method == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "shipping method not found")
	}
	for _, rate := range rates {
		if rate.RegionID == regionID && rate.MethodID == methodID && rate.Active {
			return rate.CustomPrice, nil
		}
	}
	return method.BasePrice, nil
}
