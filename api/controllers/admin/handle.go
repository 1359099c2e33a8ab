package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type action func(r *http.Request, actor types.Actor) (any, error)

// handle resolves the actor and writes either the result or the error.
// created switches the success status to 201.
func handle(logg *logger.Logger, created bool, fn action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if created {
			responses.WriteCreated(w, result)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func withID(logg *logger.Logger, key string, fn func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error)) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := validators.PathUUID(r, key)
		if err != nil {
			return nil, err
		}
		return fn(r, actor, id)
	})
}

func decode[T any](r *http.Request) (T, error) {
	var input T
	err := validators.DecodeJSONBody(r, &input)
	return input, err
}

type deleted struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}
