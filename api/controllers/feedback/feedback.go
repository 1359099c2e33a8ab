package feedback

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/feedback"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

func CreateThread(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input feedback.CreateThreadInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Subject = validators.SanitizeString(input.Subject, 200)
		input.Body = validators.SanitizeString(input.Body, 5000)
		thread, err := svc.CreateThread(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, thread)
	}
}

// List returns the caller's threads for customers and every thread for support staff.
func List(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
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
		threads, err := svc.List(r.Context(), actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, threads)
	}
}

func Messages(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return withThread(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Messages(r.Context(), actor, id)
	})
}

func Reply(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return withThread(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		var input feedback.ReplyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			return nil, err
		}
		return svc.Reply(r.Context(), actor, id, validators.SanitizeString(input.Body, 5000))
	})
}

func Close(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return withThread(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Close(r.Context(), actor, id)
	})
}

func Reopen(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return withThread(logg, func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Reopen(r.Context(), actor, id)
	})
}

type threadAction func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error)

func withThread(logg *logger.Logger, action threadAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "threadId")
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
