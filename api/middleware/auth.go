package middleware

import (
	"net/http"
	"strings"

	"github.com/casamarket/casa-backend/api/responses"
	pkgAuth "github.com/casamarket/casa-backend/pkg/auth"
	"github.com/casamarket/casa-backend/pkg/auth/session"
	"github.com/casamarket/casa-backend/pkg/config"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth admits requests carrying a valid, unrevoked access token and puts the
// actor, role and session on the request context.
func Auth(cfg config.JWTConfig, revocations session.RevocationChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error) { responses.WriteError(ctx, logg, w, err) }

			raw, ok := bearerToken(r)
			if !ok {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, raw)
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(ctx, claims.SessionID())
				switch {
				case err != nil:
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case revoked:
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
					return
				}
			}

			ctx = WithActor(ctx, claims.ActorID, claims.Role)
			ctx = withToken(ctx, claims.SessionID(), claims.Expiry())
			if logg != nil {
				ctx = logg.WithActorID(ctx, claims.ActorID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <jwt>" in any case, or a bare token.
func bearerToken(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		v = strings.TrimSpace(v[len(bearerPrefix):])
	}
	return v, v != ""
}
