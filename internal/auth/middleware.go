package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jkorhonen/carrier/internal/metrics"
)

// BearerAuth returns an HTTP middleware that validates Bearer token
// authentication against the configured API key list. Keys are compared in
// constant time.
func BearerAuth(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, `{"error":"authorization header required"}`)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, `{"error":"invalid authorization format, expected Bearer <token>"}`)
				return
			}

			apiKey := parts[1]
			if apiKey == "" {
				unauthorized(w, `{"error":"empty API key"}`)
				return
			}

			if !keyMatches(apiKey, apiKeys) {
				unauthorized(w, `{"error":"invalid API key"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func keyMatches(candidate string, apiKeys []string) bool {
	matched := false
	for _, key := range apiKeys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			matched = true
		}
	}
	return matched
}

func unauthorized(w http.ResponseWriter, body string) {
	metrics.APIAuthFailuresTotal.Inc()
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, body, http.StatusUnauthorized)
}
