package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type (
	actorKey     struct{}
	requestIDKey struct{}
)

// WithActor seeds the context the way Auth does.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated caller. ok is false when the
// request never passed through Auth.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(types.Actor)
	if !ok || actor.UserID == uuid.Nil || actor.Role == "" {
		return types.Actor{}, false
	}
	return actor, true
}

// UserIDFromContext is the caller's id as a string, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

// RequestActor is ActorFromContext for handlers mounted behind Auth.
func RequestActor(r *http.Request) (types.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
