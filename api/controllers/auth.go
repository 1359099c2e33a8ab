package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/internal/auth"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// AuthRegister creates a customer account, or a pending staff account when a
// staff role is requested.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, http.StatusCreated, func(r *http.Request, req auth.RegisterRequest) (any, error) {
		return svc.Register(r.Context(), req)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, http.StatusOK, func(r *http.Request, req auth.LoginRequest) (any, error) {
		return svc.Login(r.Context(), req)
	})
}

// AuthRefresh expects the current (possibly expired) access token in the
// Authorization header and the refresh token in the body.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, http.StatusOK, func(r *http.Request, req auth.RefreshRequest) (any, error) {
		access, err := bearer(r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), access, req.RefreshToken)
	})
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := bearer(r)
		if err == nil {
			err = svc.Logout(r.Context(), access)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

func Me(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		return svc.Me(r.Context(), actor.UserID)
	})
}
