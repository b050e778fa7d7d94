package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"ordercast/internal/core/services"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenValidator is satisfied by services.TokenService.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(token string) (services.Identity, error)
}

// AuthMiddleware resolves the caller's identity from a Bearer token, or from
// the token query parameter for browser WebSocket clients that cannot set
// headers. A request without a token passes through anonymously; a request
// with a bad token is rejected.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil || !tokens.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := bearer(r)
			if !ok {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := tokens.ValidateToken(raw)
			if err != nil {
				http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity AuthMiddleware attached, if any.
func IdentityFrom(ctx context.Context) (services.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(services.Identity)
	return id, ok
}

func bearer(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("token"), true
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// IngestKey guards the publishing endpoints with a shared key sent in the
// X-Ingest-Key header. An empty key leaves them open.
func IngestKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Ingest-Key")), []byte(key)) != 1 {
				http.Error(w, "Unauthorized: bad ingest key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
