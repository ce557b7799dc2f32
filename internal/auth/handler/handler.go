// Package handler exposes the auth module over HTTP under /api/auth.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/httputil"
	adminmw "scubaai/pkg/platform/middleware/admin"
	authmw "scubaai/pkg/platform/middleware/auth"
	"scubaai/pkg/platform/middleware/metadata"
	"scubaai/pkg/platform/middleware/request"
)

// Service is the auth façade the handler drives.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.Profile, error)
	Login(ctx context.Context, req models.LoginRequest, userAgent, clientIP string) (models.TokenPair, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (models.TokenPair, error)
	Logout(ctx context.Context, userID id.UserID, jti string) error
	Profile(ctx context.Context, userID id.UserID) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID id.UserID, req models.UpdateProfileRequest) (models.Profile, error)
	ChangePassword(ctx context.Context, userID id.UserID, req models.ChangePasswordRequest) error
	Sessions(ctx context.Context, userID id.UserID) ([]models.SessionSummary, error)
	ListUsers(ctx context.Context) ([]models.Profile, error)
	ToggleActive(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error)
	Promote(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error)
	Demote(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error)
	DeleteUser(ctx context.Context, adminID, targetID id.UserID) error
	UserStats(ctx context.Context, targetID id.UserID) (models.UserStats, error)
}

type Handler struct {
	logger       *slog.Logger
	auth         Service
	jwtValidator authmw.JWTValidator
	revocations  authmw.TokenRevocationChecker
}

func New(auth Service, jwtValidator authmw.JWTValidator, revocations authmw.TokenRevocationChecker, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register mounts the auth routes. The caller's router already carries the
// common middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(h.jwtValidator, h.revocations, h.logger))
			r.Post("/logout", h.handleLogout)
			r.Post("/change-password", h.handleChangePassword)
			r.Get("/profile", h.handleGetProfile)
			r.Put("/profile", h.handleUpdateProfile)
			r.Get("/sessions", h.handleSessions)

			r.Group(func(r chi.Router) {
				r.Use(adminmw.RequireAdmin(h.logger))
				r.Get("/users", h.handleListUsers)
				r.Post("/users/{id}/toggle-active", h.handleToggleActive)
				r.Post("/users/{id}/promote", h.handlePromote)
				r.Post("/users/{id}/demote", h.handleDemote)
				r.Delete("/users/{id}", h.handleDeleteUser)
				r.Get("/users/{id}/stats", h.handleUserStats)
			})
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.fail(r.Context(), w, err, "registration failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ctx := r.Context()
	pair, err := h.auth.Login(ctx, req, metadata.GetUserAgent(ctx), metadata.GetClientIP(ctx))
	if err != nil {
		h.fail(ctx, w, err, "login failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req)
	if err != nil {
		h.fail(r.Context(), w, err, "token refresh failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	if err := h.auth.Logout(ctx, userID, authmw.GetJTI(ctx)); err != nil {
		h.fail(ctx, w, err, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.auth.ChangePassword(ctx, userID, req); err != nil {
		h.fail(ctx, w, err, "password change failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	profile, err := h.auth.Profile(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "profile lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.auth.UpdateProfile(ctx, userID, req)
	if err != nil {
		h.fail(ctx, w, err, "profile update failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}

	sessions, err := h.auth.Sessions(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "session listing failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		h.fail(r.Context(), w, err, "user listing failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleToggleActive(w http.ResponseWriter, r *http.Request) {
	h.adminMutation(w, r, h.auth.ToggleActive)
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	h.adminMutation(w, r, h.auth.Promote)
}

func (h *Handler) handleDemote(w http.ResponseWriter, r *http.Request) {
	h.adminMutation(w, r, h.auth.Demote)
}

func (h *Handler) adminMutation(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error),
) {
	ctx := r.Context()
	adminID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}
	targetID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := op(ctx, adminID, targetID)
	if err != nil {
		h.fail(ctx, w, err, "admin user mutation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, ok := h.currentUser(ctx, w)
	if !ok {
		return
	}
	targetID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.auth.DeleteUser(ctx, adminID, targetID); err != nil {
		h.fail(ctx, w, err, "user deletion failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	targetID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.auth.UserStats(r.Context(), targetID)
	if err != nil {
		h.fail(r.Context(), w, err, "user stats failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// currentUser parses the authenticated user ID set by RequireAuth. A parse
// failure means the middleware chain is miswired.
func (h *Handler) currentUser(ctx context.Context, w http.ResponseWriter) (id.UserID, bool) {
	userID, err := id.ParseUserID(authmw.GetUserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "user id missing from authenticated context",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.InfoContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"code", string(code),
		)
	}
	httputil.WriteError(w, err)
}
