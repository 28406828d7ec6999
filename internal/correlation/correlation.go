package correlation

import "context"

const Header = "X-Correlation-ID"

type contextKey struct{}

// WithID returns a copy of ctx carrying the correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id of ctx, or an empty string.
func FromContext(ctx context.Context) string {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok {
		return ""
	}
	return id
}
