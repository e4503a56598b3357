package core

import "context"

// Context keys for computation options
type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID sets the correlation id a computation should reuse instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// requestIDFrom returns the correlation id from context, if any
func requestIDFrom(ctx context.Context) string {
	val := ctx.Value(requestIDKey)
	if val == nil {
		return ""
	}
	id, _ := val.(string)
	return id
}
