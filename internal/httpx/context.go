package httpx

import (
	"context"
	"net/http"

	"bookshelf/internal/identity"
)

type contextKey string

const (
	identityKey    contextKey = "identity"
	requestIDKey   contextKey = "requestID"
	requestInfoKey contextKey = "requestInfo"
)

// requestInfo is shared by pointer so outer middleware can read what inner middleware learned.
type requestInfo struct {
	ownerID string
}

// IdentityFrom returns the verified caller set by AuthMiddleware.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey).(identity.Identity)
	return id, ok
}

func ContextWithIdentity(ctx context.Context, id identity.Identity) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.ownerID = id.Subject
	}
	return context.WithValue(ctx, identityKey, id)
}

func RequestIDFrom(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
