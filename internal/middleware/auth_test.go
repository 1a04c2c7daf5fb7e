package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name        string
		headerKey   string
		expectedKey string
		env         string
		want        bool
	}{
		{"development bypasses auth", "", "secret", EnvDevelopment, true},
		{"development bypasses even without configured key", "", "", EnvDevelopment, true},
		{"matching key allowed", "secret", "secret", "production", true},
		{"wrong key denied", "wrong", "secret", "production", false},
		{"missing header denied", "", "secret", "production", false},
		{"empty configured key fails closed", "anything", "", "production", false},
		{"both empty still denied", "", "", "production", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.headerKey, tc.expectedKey, tc.env))
		})
	}
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := APIKeyAuth("secret", "production")(next)

	t.Run("denied without header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("allowed with key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.Header.Set(APIKeyHeader, "secret")
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})
}
