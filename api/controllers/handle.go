package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// public adapts an unauthenticated read.
func public(logg *logger.Logger, fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// withActor resolves the authenticated caller before calling fn and writes
// its result with status.
func withActor(logg *logger.Logger, status int, fn func(r *http.Request, actor types.Actor) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err == nil {
			var out any
			if out, err = fn(r, actor); err == nil {
				responses.WriteSuccessStatus(w, status, out)
				return
			}
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}

// withBody decodes a strict JSON body of type T before calling fn. status is
// the success code.
func withBody[T any](logg *logger.Logger, status int, fn func(r *http.Request, req T) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode[T](r)
		if err == nil {
			var out any
			if out, err = fn(r, req); err == nil {
				responses.WriteSuccessStatus(w, status, out)
				return
			}
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}

func decode[T any](r *http.Request) (T, error) {
	var req T
	err := validators.DecodeJSONBody(r, &req)
	return req, err
}

func bearer(r *http.Request) (string, error) {
	if token := middleware.BearerToken(r); token != "" {
		return token, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
