package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/tracking"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

// TrackOrder serves the public gift tracking page data. The view comes from
// ?context=; anything other than gift_recipient is answered with 404.
func TrackOrder(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Track(r.Context(), id, r.URL.Query().Get("context"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, view)
	}
}
