package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the configured browser origins call the API. Auth travels in the
// Authorization header, so credentials (cookies) are never allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, ReplayedHeader, "Retry-After"},
		MaxAge:         600,
	})
}
