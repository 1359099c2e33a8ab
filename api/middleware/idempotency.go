package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/giftops-backend/api/responses"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/giftops-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 2 * time.Minute

	pendingMarker = "pending"
)

type idempotentRoute struct {
	method string
	segs   []string
	ttl    time.Duration
}

func route(method, pattern string, ttl time.Duration) idempotentRoute {
	return idempotentRoute{method: method, segs: strings.Split(strings.Trim(pattern, "/"), "/"), ttl: ttl}
}

var idempotentRoutes = []idempotentRoute{
	route(http.MethodPost, "/api/public/register", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/bulk-orders", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/feedback", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/feedback/*/reply", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/notifications/*/read", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/notifications/read-all", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/inventory/stock-requests", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/supplier/stock-requests/*/bids", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/supplier/invoices", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/dispatch/tasks", defaultIdempotencyTTL),
	// money moves or irreversible transitions
	route(http.MethodPost, "/api/orders", criticalIdempotencyTTL),
	route(http.MethodPost, "/api/orders/*/cancel", criticalIdempotencyTTL),
	route(http.MethodPost, "/api/bulk-orders/*/confirm", criticalIdempotencyTTL),
	route(http.MethodPost, "/api/finance/stock-requests/*/award", criticalIdempotencyTTL),
	route(http.MethodPost, "/api/finance/invoices/*/pay", criticalIdempotencyTTL),
}

// matches compares path segment by segment; "*" is exactly one segment.
func (rt idempotentRoute) matches(method, path string) bool {
	if rt.method != method {
		return false
	}
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(got) != len(rt.segs) {
		return false
	}
	for i, seg := range rt.segs {
		if seg != "*" && seg != got[i] {
			return false
		}
	}
	return true
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rt := range idempotentRoutes {
		if rt.matches(method, path) {
			return rt.ttl, true
		}
	}
	return 0, false
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency makes the listed write routes safe to retry. The first request
// for a key claims it; duplicates arriving while it runs get 409, and later
// duplicates with the same body get the recorded response. Server errors
// release the key so the client may try again.
func Idempotency(store pkgredis.ResponseCache, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case idemKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(idemKey) > maxIdempotencyKey:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, idemKey)

			claimed, err := store.SetNX(ctx, key, pendingMarker, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(ctx, store, logg, w, key, hash)
				return
			}

			// Store writes outlive a client disconnect.
			bg := context.WithoutCancel(ctx)
			completed := false
			defer func() {
				if !completed {
					release(bg, store, logg, key)
				}
			}()

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				RequestHash: hash,
			})
			if err == nil {
				err = store.Set(bg, key, string(payload), ttl)
			}
			if err != nil {
				if logg != nil {
					logg.Error(bg, "idempotency.persist_failed", err)
				}
				return
			}
			completed = true
		})
	}
}

func replay(ctx context.Context, store pkgredis.ResponseCache, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil), raw == pendingMarker:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var rec storedResponse
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if rec.RequestHash != hash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func release(ctx context.Context, store pkgredis.ResponseCache, logg *logger.Logger, key string) {
	if err := store.Del(ctx, key); err != nil && logg != nil {
		logg.Error(ctx, "idempotency.release_failed", err)
	}
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
