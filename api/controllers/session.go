package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/casamarket/casa-backend/api/middleware"
	"github.com/casamarket/casa-backend/api/responses"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

type sessionRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

type logoutResponse struct {
	Status    string    `json:"status"`
	RevokedAt time.Time `json:"revokedAt"`
}

// AuthLogout revokes the caller's own access token. The revocation lives
// only as long as the token would have, so repeated logouts are harmless.
func AuthLogout(revoker sessionRevoker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID, expiresAt := middleware.TokenFromContext(ctx)
		switch {
		case revoker == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		case sessionID == "":
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := revoker.Revoke(ctx, sessionID, expiresAt); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}
		if logg != nil {
			logg.Info(ctx, "session revoked")
		}
		responses.WriteSuccess(w, logoutResponse{Status: "logged_out", RevokedAt: time.Now().UTC()})
	}
}
