// Package handler exposes system settings, preferences and data export over
// HTTP under /api/settings.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scubaai/internal/settings/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/httputil"
	adminmw "scubaai/pkg/platform/middleware/admin"
	authmw "scubaai/pkg/platform/middleware/auth"
	"scubaai/pkg/platform/middleware/request"
)

// Service is the settings façade the handler drives.
type Service interface {
	List(ctx context.Context) ([]models.Setting, error)
	GetByKey(ctx context.Context, key string) (models.Setting, error)
	Create(ctx context.Context, adminID id.UserID, req models.CreateSettingRequest) (models.Setting, error)
	Update(ctx context.Context, adminID id.UserID, settingID id.SettingID, req models.UpdateSettingRequest) (models.Setting, error)
	Delete(ctx context.Context, adminID id.UserID, settingID id.SettingID) error
	Preferences(ctx context.Context, userID id.UserID) (models.Preferences, error)
	Export(ctx context.Context, userID id.UserID) (models.Export, error)
}

type Handler struct {
	logger       *slog.Logger
	settings     Service
	jwtValidator authmw.JWTValidator
	revocations  authmw.TokenRevocationChecker
}

func New(settings Service, jwtValidator authmw.JWTValidator, revocations authmw.TokenRevocationChecker, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		settings:     settings,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register mounts the system-settings, preferences and export routes. The
// caller mounts this under /settings alongside the instruction routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		r.Get("/preferences", h.handlePreferences)
		r.Get("/export", h.handleExport)

		r.Route("/system", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Get("/key/{key}", h.handleGetByKey)

			r.Group(func(r chi.Router) {
				r.Use(adminmw.RequireAdmin(h.logger))
				r.Post("/", h.handleCreate)
				r.Put("/{id}", h.handleUpdate)
				r.Delete("/{id}", h.handleDelete)
			})
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		h.fail(r.Context(), w, err, "failed to list settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleGetByKey(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.GetByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(r.Context(), w, err, "failed to load setting")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setting)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	var req models.CreateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	setting, err := h.settings.Create(r.Context(), adminID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to create setting")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, setting)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	settingID, err := id.ParseSettingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	setting, err := h.settings.Update(r.Context(), adminID, settingID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to update setting")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setting)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	settingID, err := id.ParseSettingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.settings.Delete(r.Context(), adminID, settingID); err != nil {
		h.fail(r.Context(), w, err, "failed to delete setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	prefs, err := h.settings.Preferences(r.Context(), userID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to load preferences")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prefs)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	export, err := h.settings.Export(r.Context(), userID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to export user data")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="scubaai-export.json"`)
	httputil.WriteJSON(w, http.StatusOK, export)
}

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
