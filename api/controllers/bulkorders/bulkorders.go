package bulkorders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/bulkorders"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type notesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func Submit(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input bulkorders.SubmitInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bulk, err := svc.Submit(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, bulk)
	}
}

// List scopes customers to their own requests; admins may filter by customer_id.
func List(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.Page(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.QueryEnum(r, "status", enums.BulkOrderStatus.IsValid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := validators.QueryUUID(r, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), actor, bulkorders.ListParams{
			ListFilters: bulkorders.ListFilters{Status: status, CustomerID: customer},
			Params:      page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withBulkOrder(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, id)
	})
}

func Quote(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withBulkOrder(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var input bulkorders.QuoteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.Quote(r.Context(), actor, id, input)
	})
}

func Reject(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withBulkOrder(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req notesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), actor, id, validators.SanitizeString(req.Notes, 2000))
	})
}

func Cancel(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withBulkOrder(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Cancel(r.Context(), actor, id)
	})
}

// Confirm accepts a quote and converts it into a regular order.
func Confirm(svc bulkorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withBulkOrder(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Confirm(r.Context(), actor, id)
	})
}

type bulkAction func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error)

func withBulkOrder(logg *logger.Logger, action bulkAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "bulkOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := action(r, actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
