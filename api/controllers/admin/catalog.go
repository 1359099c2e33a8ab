package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ListProducts includes archived products unless ?active_only=true.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		page, err := validators.Page(r)
		if err != nil {
			return nil, err
		}
		activeOnly, err := validators.QueryBool(r, "active_only")
		if err != nil {
			return nil, err
		}
		return svc.ListProducts(r.Context(), products.ListInput{
			Category:   validators.SanitizeString(r.URL.Query().Get("category"), 80),
			Query:      validators.SanitizeString(r.URL.Query().Get("q"), 120),
			ActiveOnly: activeOnly != nil && *activeOnly,
			Pagination: page,
		})
	})
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		return svc.GetProduct(r.Context(), id, false)
	})
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, true, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := decode[products.ProductInput](r)
		if err != nil {
			return nil, err
		}
		return svc.CreateProduct(r.Context(), input)
	})
}

func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		input, err := decode[products.ProductInput](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateProduct(r.Context(), id, input)
	})
}

func ArchiveProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		if err := svc.ArchiveProduct(r.Context(), id); err != nil {
			return nil, err
		}
		return deleted{ID: id, Deleted: true}, nil
	})
}

func ListGroups(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		return svc.ListGroups(r.Context())
	})
}

func CreateGroup(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, true, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := decode[products.GroupInput](r)
		if err != nil {
			return nil, err
		}
		return svc.CreateGroup(r.Context(), input)
	})
}

func UpdateGroup(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "groupId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		input, err := decode[products.GroupInput](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateGroup(r.Context(), id, input)
	})
}

func DeleteGroup(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "groupId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		if err := svc.DeleteGroup(r.Context(), id); err != nil {
			return nil, err
		}
		return deleted{ID: id, Deleted: true}, nil
	})
}

func ListRegions(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		return svc.ListRegions(r.Context(), false)
	})
}

func CreateRegion(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, true, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := decode[shipping.RegionInput](r)
		if err != nil {
			return nil, err
		}
		return svc.CreateRegion(r.Context(), input)
	})
}

func UpdateRegion(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "regionId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		input, err := decode[shipping.RegionInput](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateRegion(r.Context(), id, input)
	})
}

func DeactivateRegion(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "regionId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		if err := svc.DeactivateRegion(r.Context(), id); err != nil {
			return nil, err
		}
		return deleted{ID: id, Deleted: true}, nil
	})
}

func ListMethods(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		return svc.ListMethods(r.Context(), false)
	})
}

func CreateMethod(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, true, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := decode[shipping.MethodInput](r)
		if err != nil {
			return nil, err
		}
		return svc.CreateMethod(r.Context(), input)
	})
}

func UpdateMethod(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "methodId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		input, err := decode[shipping.MethodInput](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateMethod(r.Context(), id, input)
	})
}

func ListRates(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		return svc.ListRates(r.Context())
	})
}

// UpsertRate sets the price for a region and method pair.
func UpsertRate(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := decode[shipping.RateInput](r)
		if err != nil {
			return nil, err
		}
		return svc.UpsertRate(r.Context(), input)
	})
}

func DeactivateRate(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "rateId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		if err := svc.DeactivateRate(r.Context(), id); err != nil {
			return nil, err
		}
		return deleted{ID: id, Deleted: true}, nil
	})
}
