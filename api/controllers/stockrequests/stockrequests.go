package stockrequests

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/export"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type awardRequest struct {
	BidID uuid.UUID `json:"bid_id" validate:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type receiveRequest struct {
	ReceivedQuantity int    `json:"received_quantity" validate:"required,min=1"`
	Notes            string `json:"notes" validate:"max=1000"`
}

func Create(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input stockrequests.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, request)
	}
}

// List pages stock requests; suppliers only see open requests and the ones
// awarded to them.
func List(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Detail(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, id)
	})
}

func SubmitBid(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var input stockrequests.BidInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.SubmitBid(r.Context(), actor, id, input)
	})
}

func Award(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req awardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Award(r.Context(), actor, id, req.BidID)
	})
}

func Reject(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req reasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.RejectFinance(r.Context(), actor, id, validators.SanitizeString(req.Reason, 1000))
	})
}

func Cancel(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req reasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Cancel(r.Context(), actor, id, validators.SanitizeString(req.Reason, 1000))
	})
}

func Acknowledge(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.AcknowledgeAward(r.Context(), actor, id)
	})
}

func Receive(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return withRequest(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req receiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Receive(r.Context(), actor, id, req.ReceivedQuantity, validators.SanitizeString(req.Notes, 1000))
	})
}

func Export(svc stockrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = pagination.MaxLimit
		rows, err := export.Collect(r.Context(), func(ctx context.Context, cursor string) (*pagination.Page[stockrequests.StockRequestDTO], error) {
			p := params
			p.Cursor = cursor
			return svc.List(ctx, actor, p)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("stock-requests-%s.csv", time.Now().UTC().Format("20060102"))
		responses.WriteCSV(r.Context(), logg, w, filename, func(out io.Writer) error {
			return export.StockRequestTable.Write(out, rows)
		})
	}
}

func listParams(r *http.Request) (stockrequests.ListParams, error) {
	page, err := validators.Page(r)
	if err != nil {
		return stockrequests.ListParams{}, err
	}
	status, err := validators.QueryEnum(r, "status", enums.StockRequestStatus.IsValid)
	if err != nil {
		return stockrequests.ListParams{}, err
	}
	product, err := validators.QueryUUID(r, "product_id")
	if err != nil {
		return stockrequests.ListParams{}, err
	}
	return stockrequests.ListParams{
		ListFilters: stockrequests.ListFilters{Status: status, ProductID: product},
		Params:      page,
	}, nil
}

type requestAction func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error)

func withRequest(logg *logger.Logger, action requestAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "requestId")
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
