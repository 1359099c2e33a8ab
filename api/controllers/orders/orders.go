package orders

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
	internalorders "github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type rateRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type transitionRequest struct {
	To    enums.OrderStatus `json:"to" validate:"required"`
	Notes string            `json:"notes" validate:"max=1000"`
}

type assignRequest struct {
	RiderID uuid.UUID `json:"rider_id" validate:"required"`
	Notes   string    `json:"notes" validate:"max=1000"`
}

type colorRequest struct {
	Color string `json:"color" validate:"required"`
}

type paymentRequest struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status" validate:"required"`
}

// Checkout places an order for the calling customer.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internalorders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

// List returns a page of orders visible to the caller. Customers see their
// own, riders their assignments, managers everything.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), actor, id)
	})
}

func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		return svc.History(r.Context(), actor, id)
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Cancel(r.Context(), actor, id, validators.SanitizeString(req.Reason, 500))
	})
}

func Rate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req rateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Rate(r.Context(), actor, id, req.Score, validators.SanitizeString(req.Comment, 2000))
	})
}

// Transition moves an order along the state machine. Authorization per
// target status is decided by the orders service.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.Transition(r.Context(), actor, id, req.To, validators.SanitizeString(req.Notes, 1000))
	})
}

func AssignRider(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.AssignRider(r.Context(), actor, id, req.RiderID, validators.SanitizeString(req.Notes, 1000))
	})
}

func SetColor(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req colorRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.SetColor(r.Context(), actor, id, req.Color)
	})
}

func UpdatePayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			return nil, err
		}
		var req paymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.UpdatePayment(r.Context(), actor, id, req.PaymentStatus)
	})
}

// Export streams every order matching the list filters as CSV.
func Export(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		rows, err := export.Collect(r.Context(), func(ctx context.Context, cursor string) (*pagination.Page[internalorders.OrderDTO], error) {
			p := params
			p.Cursor = cursor
			return svc.List(ctx, actor, p)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("orders-%s.csv", time.Now().UTC().Format("20060102"))
		responses.WriteCSV(r.Context(), logg, w, filename, func(out io.Writer) error {
			return export.OrderTable.Write(out, rows)
		})
	}
}

func listParams(r *http.Request) (internalorders.ListParams, error) {
	page, err := validators.Page(r)
	if err != nil {
		return internalorders.ListParams{}, err
	}
	status, err := validators.QueryEnum(r, "status", enums.OrderStatus.IsValid)
	if err != nil {
		return internalorders.ListParams{}, err
	}
	payment, err := validators.QueryEnum(r, "payment_status", enums.PaymentStatus.IsValid)
	if err != nil {
		return internalorders.ListParams{}, err
	}
	rider, err := validators.QueryUUID(r, "rider_id")
	if err != nil {
		return internalorders.ListParams{}, err
	}
	customer, err := validators.QueryUUID(r, "customer_id")
	if err != nil {
		return internalorders.ListParams{}, err
	}
	return internalorders.ListParams{
		ListFilters: internalorders.ListFilters{
			Status:        status,
			PaymentStatus: payment,
			RiderID:       rider,
			CustomerID:    customer,
		},
		Params: page,
	}, nil
}

type orderAction func(w http.ResponseWriter, r *http.Request, id uuid.UUID) (any, error)

// withOrder parses {orderId} and writes the action's result or error.
func withOrder(logg *logger.Logger, action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := action(w, r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
