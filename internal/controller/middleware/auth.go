package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"farmgate/internal/auth"
)

// RequireAPIKey ensures the request carries the API key whose SHA-256
// digest matches keyHash. Keys arrive either as "Authorization: Bearer"
// or in the X-Api-Key header.
func RequireAPIKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Api-Key")
			if key == "" {
				authHeader := r.Header.Get("Authorization")
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "Missing API key", http.StatusUnauthorized)
					return
				}
				key = parts[1]
			}

			hashed := auth.HashKey(key)
			if subtle.ConstantTimeCompare([]byte(hashed), []byte(keyHash)) != 1 {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
