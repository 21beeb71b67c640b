package middleware

import (
	"net/http"
	"slices"

	"github.com/casamarket/casa-backend/api/responses"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
)

// RequireRole admits actors holding one of allowed. It runs after Auth, so a
// missing role means the route was mounted outside the authenticated group.
func RequireRole(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	allowed = slices.Clone(allowed)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role != "" && slices.Contains(allowed, role) {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Newf(pkgerrors.CodeForbidden, "this action needs one of the roles %v", allowed).
					WithDetails(map[string]any{"role": role, "allowed": allowed}))
		})
	}
}
