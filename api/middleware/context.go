package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

type contextKey string

const (
	ctxActorID     contextKey = "actor_id"
	ctxRole        contextKey = "actor_role"
	ctxTokenID     contextKey = "token_id"
	ctxTokenExpiry contextKey = "token_expiry"
	ctxRequestID   contextKey = "request_id"
)

func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	v, ok := ctx.Value(ctxActorID).(uuid.UUID)
	return v, ok && v != uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// Actor returns the authenticated actor or an unauthorized error.
func Actor(ctx context.Context) (uuid.UUID, enums.ActorRole, error) {
	id, ok := ActorIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, RoleFromContext(ctx), nil
}

// TokenFromContext returns the jti and expiry of the bearer token on the request.
func TokenFromContext(ctx context.Context) (string, time.Time) {
	if ctx == nil {
		return "", time.Time{}
	}
	id, _ := ctx.Value(ctxTokenID).(string)
	exp, _ := ctx.Value(ctxTokenExpiry).(time.Time)
	return id, exp
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actorID uuid.UUID, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	return context.WithValue(ctx, ctxRole, role)
}

func withToken(ctx context.Context, id string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, ctxTokenID, id)
	return context.WithValue(ctx, ctxTokenExpiry, expiresAt)
}
