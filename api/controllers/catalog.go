package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

// PublicProducts lists active products. Supports ?category=, ?q=, limit and cursor.
func PublicProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return public(logg, func(r *http.Request) (any, error) {
		page, err := validators.Page(r)
		if err != nil {
			return nil, err
		}
		q := r.URL.Query()
		return svc.ListProducts(r.Context(), products.ListInput{
			Category:   validators.SanitizeString(q.Get("category"), 80),
			Query:      validators.SanitizeString(q.Get("q"), 120),
			ActiveOnly: true,
			Pagination: page,
		})
	})
}

func PublicProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return public(logg, func(r *http.Request) (any, error) {
		id, err := validators.PathUUID(r, "productId")
		if err != nil {
			return nil, err
		}
		return svc.GetProduct(r.Context(), id, true)
	})
}

func PublicShippingRegions(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return public(logg, func(r *http.Request) (any, error) {
		return svc.ListRegions(r.Context(), true)
	})
}

func PublicShippingMethods(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return public(logg, func(r *http.Request) (any, error) {
		return svc.ListMethods(r.Context(), true)
	})
}

// PublicShippingQuote prices ?region_id=&method_id= using the custom rate when one is active.
func PublicShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return public(logg, func(r *http.Request) (any, error) {
		regionID, err := validators.QueryUUID(r, "region_id")
		if err != nil {
			return nil, err
		}
		methodID, err := validators.QueryUUID(r, "method_id")
		if err != nil {
			return nil, err
		}
		var missing []string
		if regionID == nil {
			missing = append(missing, "region_id")
		}
		if methodID == nil {
			missing = append(missing, "method_id")
		}
		if len(missing) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "region_id and method_id are required").
				WithDetails(map[string]any{"missing": strings.Join(missing, ",")})
		}
		return svc.Quote(r.Context(), *regionID, *methodID)
	})
}
