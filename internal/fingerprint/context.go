package fingerprint

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying the fingerprint hash.
func NewContext(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, contextKey{}, hash)
}

// FromContext extracts the fingerprint hash, or "" when none was resolved.
func FromContext(ctx context.Context) string {
	hash, _ := ctx.Value(contextKey{}).(string)
	return hash
}
