package logging

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	urlKey       contextKey = "url"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithURL adds the URL being fetched to the context.
func WithURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, urlKey, url)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetURL retrieves the fetched URL from the context.
// Returns empty string if not present.
func GetURL(ctx context.Context) string {
	if u, ok := ctx.Value(urlKey).(string); ok {
		return u
	}
	return ""
}
