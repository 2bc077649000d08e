package logtrace

import (
	"context"
)

// requestIDKey is unexported so no other package can collide with it.
type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id. The request logger
// middleware sets it; error responses quote it so a failure can be found in
// the logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIDKey{}).(string)
	if !ok {
		return ""
	}
	return r
}
