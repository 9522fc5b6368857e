// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"farmgate/internal/logger"
)

// RequestID attaches a correlation ID to every request. An inbound
// X-Request-ID is honored so IDs survive proxy hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
