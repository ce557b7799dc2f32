// Package auth provides the JWT bearer-token middleware guarding every
// authenticated route.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	request "scubaai/pkg/platform/middleware/request"
)

// JWTValidator defines the interface for validating JWT access tokens.
type JWTValidator interface {
	ValidateAccessToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID  string
	IsAdmin bool
	JTI     string // JWT ID for revocation tracking
}

// Context keys for storing authenticated user information.
type contextKeyUserID struct{}
type contextKeyIsAdmin struct{}
type contextKeyJTI struct{}

var (
	ContextKeyUserID  = contextKeyUserID{}
	ContextKeyIsAdmin = contextKeyIsAdmin{}
	ContextKeyJTI     = contextKeyJTI{}
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(ctx context.Context) bool {
	isAdmin, ok := ctx.Value(ContextKeyIsAdmin).(bool)
	return ok && isAdmin
}

// GetJTI retrieves the token ID of the presented access token.
func GetJTI(ctx context.Context) string {
	jti, ok := ctx.Value(ContextKeyJTI).(string)
	if !ok {
		return ""
	}
	return jti
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the Authorization bearer token, rejects revoked JTIs,
// and stores the caller's identity in the request context.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := r.Context()

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", request.GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}

				revoked, err := revocationChecker.IsRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", request.GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusInternalServerError, "internal", "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", request.GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
					return
				}
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyIsAdmin, claims.IsAdmin)
			ctx = context.WithValue(ctx, ContextKeyJTI, claims.JTI)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
