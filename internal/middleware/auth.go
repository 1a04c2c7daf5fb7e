package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// EnvDevelopment disables authentication entirely for local testing. It must
// never be set on a production deployment.
const EnvDevelopment = "development"

// APIKeyHeader carries the shared secret on mutating requests.
const APIKeyHeader = "x-api-key"

// Authorize is the pure auth decision: allow everything in development mode,
// otherwise require an exact x-api-key match. An empty expected key fails
// closed so a missing configuration never opens the endpoint.
func Authorize(headerKey, expectedKey, env string) bool {
	if env == EnvDevelopment {
		return true
	}
	if expectedKey == "" {
		return false
	}
	// Constant-time compare to prevent timing attacks.
	return subtle.ConstantTimeCompare([]byte(headerKey), []byte(expectedKey)) == 1
}

// APIKeyAuth gates mutating routes behind the shared API key.
func APIKeyAuth(expectedKey, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authorize(r.Header.Get(APIKeyHeader), expectedKey, env) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
