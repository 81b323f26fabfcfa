package testutil

import (
	"context"
	"net/http"

	"wrapregistry/internal/platform/middleware"
)

// WithCaller adds an authenticated caller account to the request
// context, simulating what the bearer-token middleware does for
// authenticated requests.
func WithCaller(req *http.Request, account string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyCaller, account)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context, simulating
// the request ID middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
