package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS applies the allowed origin policy. An empty list means any origin, and
// credentials are only allowed when origins are listed explicitly.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-Requested-With",
			requestIDHeader, TokenHeader, IdempotencyHeader,
		},
		// Browsers hide response headers not listed here; the SPA reads the
		// token after login and the replay marker on retried orders.
		ExposedHeaders:   []string{requestIDHeader, TokenHeader, ReplayedHeader, "Retry-After", "Content-Disposition"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}).Handler
}
