package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"farmgate/internal/auth"
)

func TestRequireAPIKey(t *testing.T) {
	keyHash := auth.HashKey("valid-key")

	tests := []struct {
		name           string
		setHeader      func(*http.Request)
		expectedStatus int
	}{
		{
			name:           "Valid X-Api-Key",
			setHeader:      func(r *http.Request) { r.Header.Set("X-Api-Key", "valid-key") },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Bearer Token",
			setHeader:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid-key") },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing Key",
			setHeader:      func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Key",
			setHeader:      func(r *http.Request) { r.Header.Set("X-Api-Key", "wrong-key") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Authorization Header",
			setHeader:      func(r *http.Request) { r.Header.Set("Authorization", "valid-key") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Scheme",
			setHeader:      func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcg==") },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/history", nil)
			tt.setHeader(req)
			rec := httptest.NewRecorder()

			RequireAPIKey(keyHash)(next).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if called != (tt.expectedStatus == http.StatusOK) {
				t.Errorf("next handler called = %v", called)
			}
		})
	}
}
