package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ImageUploadURL returns a signed GCS PUT URL. The route fixes the upload kind.
func ImageUploadURL(svc products.Service, kind products.UploadKind, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusCreated, func(r *http.Request, actor types.Actor) (any, error) {
		input, err := decode[products.UploadInput](r)
		if err != nil {
			return nil, err
		}
		input.Kind = kind
		return svc.ImageUploadURL(r.Context(), actor, input)
	})
}
