package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// InternalKeyMiddleware guards the /internal routes. Sibling services present
// the shared key in X-Internal-API-Key.
func InternalKeyMiddleware(internalAPIKey string) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(internalAPIKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				http.Error(w, "internal API disabled", http.StatusServiceUnavailable)
				return
			}
			provided := strings.TrimSpace(r.Header.Get("X-Internal-API-Key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
