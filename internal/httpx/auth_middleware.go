package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"bookshelf/internal/identity"
)

// AuthMiddleware verifies the bearer token and stores the caller identity in the request context.
func AuthMiddleware(verifier identity.Verifier, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}

			ctx, cancel := r.Context(), context.CancelFunc(func() {})
			if timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
			}
			id, err := verifier.Verify(ctx, strings.TrimSpace(token))
			cancel()
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bookshelf"`)
	JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication failed", nil)
}
