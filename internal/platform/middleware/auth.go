package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims the transport needs from a verified
// token: the ledger account the caller authenticated as.
type JWTClaims struct {
	Account string
}

type contextKeyCaller struct{}

// ContextKeyCaller is exported for handlers and test helpers.
var ContextKeyCaller = contextKeyCaller{}

// GetCaller retrieves the authenticated caller account from the
// context, empty for anonymous requests.
func GetCaller(ctx context.Context) string {
	caller, ok := ctx.Value(ContextKeyCaller).(string)
	if !ok {
		return ""
	}
	return caller
}

// OptionalAuth resolves the caller identity when a bearer token is
// present and passes anonymous requests through untouched. A token
// that is present but invalid is rejected: presenting bad credentials
// is an error, not anonymity. Signature-mode mint submitters typically
// arrive with no token at all.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid token", err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyCaller, claims.Account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, logger, "missing token", nil)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid token", err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyCaller, claims.Account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	return strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// unauthorized writes the 401 envelope. Authentication failures are
// 401; domain authorization failures map to 403 in the handlers.
func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string, err error) {
	ctx := r.Context()
	logger.WarnContext(ctx, "unauthorized access - "+reason,
		"error", err,
		"request_id", GetRequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, werr := w.Write([]byte(`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`)); werr != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", werr,
			"request_id", GetRequestID(ctx),
		)
	}
}
