// Package middleware carries the HTTP middleware for the redirect and
// reporting surfaces: request IDs, slog request logging with redirect
// decision attributes, and panic recovery.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID in and out. Edge proxies in
// front of the redirect path may set it upstream.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID for log correlation. An
// incoming X-Request-ID is kept as-is so edge logs and ours line up;
// otherwise a UUID is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
