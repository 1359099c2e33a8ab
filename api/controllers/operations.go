package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/analytics"
	"github.com/angelmondragon/giftops-backend/internal/dispatch"
	"github.com/angelmondragon/giftops-backend/internal/tasks"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type taskStatusRequest struct {
	Status enums.TaskStatus `json:"status" validate:"required"`
}

type routeRequest struct {
	From types.LatLng `json:"from"`
}

func CreateTask(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusCreated, func(r *http.Request, actor types.Actor) (any, error) {
		input, err := decode[tasks.CreateInput](r)
		if err != nil {
			return nil, err
		}
		return svc.Create(r.Context(), actor, input)
	})
}

// ListTasks pages tasks; riders and technicians only ever see their own.
func ListTasks(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		params, err := taskListParams(r)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), actor, params)
	})
}

func taskListParams(r *http.Request) (tasks.ListParams, error) {
	var (
		params tasks.ListParams
		err    error
	)
	if params.Params, err = validators.Page(r); err != nil {
		return params, err
	}
	if params.Status, err = validators.QueryEnum(r, "status", enums.TaskStatus.IsValid); err != nil {
		return params, err
	}
	if params.OrderID, err = validators.QueryUUID(r, "order_id"); err != nil {
		return params, err
	}
	params.AssigneeID, err = validators.QueryUUID(r, "assignee_id")
	return params, err
}

func UpdateTaskStatus(svc tasks.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := validators.PathUUID(r, "taskId")
		if err != nil {
			return nil, err
		}
		req, err := decode[taskStatusRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateStatus(r.Context(), actor, id, req.Status)
	})
}

// DispatchRiders lists approved riders with their active delivery counts.
func DispatchRiders(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		return svc.ListRiders(r.Context(), actor)
	})
}

func DispatchRoute(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		req, err := decode[routeRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Route(r.Context(), actor, orderID, req.From)
	})
}

// AnalyticsSummary reads ?since and ?until; both are optional.
func AnalyticsSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		since, err := validators.QueryTime(r, "since")
		if err != nil {
			return nil, err
		}
		until, err := validators.QueryTime(r, "until")
		if err != nil {
			return nil, err
		}
		return svc.Summary(r.Context(), actor, timeOrZero(since), timeOrZero(until))
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
