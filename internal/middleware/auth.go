// Package middleware provides the request guards invoked before any
// registry access: API-key authorization and per-IP rate limiting.
// Each guard either passes the request through or terminates it itself;
// it never partially applies.
package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// publicPaths are exempt from authorization.
var publicPaths = map[string]bool{
	"/health": true,
}

// APIKeyAuth returns middleware that validates the X-API-Key header (or a
// Bearer token) against the configured bcrypt hashes. With no hashes
// configured the guard is disabled, which is the local-development mode.
func APIKeyAuth(keyHashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keyHashes) == 0 || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				auth := r.Header.Get("Authorization")
				key = strings.TrimPrefix(auth, "Bearer ")
				if key == auth {
					key = ""
				}
			}
			if key == "" {
				writeUnauthorized(w, "authorization required")
				return
			}

			for _, hash := range keyHashes {
				if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeUnauthorized(w, "invalid api key")
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// HashAPIKey produces the bcrypt hash stored in configuration for a key.
// Exposed so operators can mint hashes with a one-liner.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
