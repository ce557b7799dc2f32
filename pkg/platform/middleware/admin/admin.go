// Package admin rejects requests whose access token lacks the admin claim.
// It must run after auth.RequireAuth in the middleware chain.
package admin

import (
	"log/slog"
	"net/http"

	authmw "scubaai/pkg/platform/middleware/auth"
	request "scubaai/pkg/platform/middleware/request"
)

func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !authmw.IsAdmin(ctx) {
				logger.WarnContext(ctx, "admin access denied",
					"user_id", authmw.GetUserID(ctx),
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Admin access required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
