// Package middleware provides HTTP middleware for the rehabilitation platform.
package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS returns a configured CORS middleware handler. The application's own
// origin and local development hosts are allowed.
func CORS(baseURL string) func(next http.Handler) http.Handler {
	origins := []string{"http://localhost:*"}
	if baseURL = strings.TrimSuffix(baseURL, "/"); baseURL != "" {
		origins = append(origins, baseURL)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Stripe-Signature"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
