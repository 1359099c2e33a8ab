package invoices

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
	"github.com/angelmondragon/giftops-backend/internal/invoices"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Create lets a supplier invoice an awarded stock request (or bill ad hoc
// lines). The stock request is fulfilled in the same transaction.
func Create(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input invoices.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, invoice)
	}
}

func List(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
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

func Detail(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, id)
	})
}

func Approve(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Approve(r.Context(), actor, id)
	})
}

func Reject(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), actor, id, validators.SanitizeString(req.Reason, 1000))
	})
}

func MarkPaid(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return withInvoice(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.MarkPaid(r.Context(), actor, id)
	})
}

func Export(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
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
		rows, err := export.Collect(r.Context(), func(ctx context.Context, cursor string) (*pagination.Page[invoices.InvoiceDTO], error) {
			p := params
			p.Cursor = cursor
			return svc.List(ctx, actor, p)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("invoices-%s.csv", time.Now().UTC().Format("20060102"))
		responses.WriteCSV(r.Context(), logg, w, filename, func(out io.Writer) error {
			return export.InvoiceTable.Write(out, rows)
		})
	}
}

func listParams(r *http.Request) (invoices.ListParams, error) {
	page, err := validators.Page(r)
	if err != nil {
		return invoices.ListParams{}, err
	}
	status, err := validators.QueryEnum(r, "status", enums.InvoiceStatus.IsValid)
	if err != nil {
		return invoices.ListParams{}, err
	}
	supplier, err := validators.QueryUUID(r, "supplier_id")
	if err != nil {
		return invoices.ListParams{}, err
	}
	return invoices.ListParams{
		ListFilters: invoices.ListFilters{Status: status, SupplierID: supplier},
		Params:      page,
	}, nil
}

type invoiceAction func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error)

func withInvoice(logg *logger.Logger, action invoiceAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "invoiceId")
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
