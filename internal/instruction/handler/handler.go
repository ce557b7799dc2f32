// Package handler exposes the instruction module over HTTP under
// /api/instructions.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scubaai/internal/instruction/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/httputil"
	authmw "scubaai/pkg/platform/middleware/auth"
	"scubaai/pkg/platform/middleware/request"
)

// Service is the instruction façade the handler drives.
type Service interface {
	List(ctx context.Context, userID id.UserID) ([]models.Instruction, error)
	Create(ctx context.Context, userID id.UserID, req models.CreateInstructionRequest) (models.Instruction, error)
	Get(ctx context.Context, userID id.UserID, instrID id.InstructionID) (models.Instruction, error)
	Update(ctx context.Context, userID id.UserID, instrID id.InstructionID, req models.UpdateInstructionRequest) (models.Instruction, error)
	Delete(ctx context.Context, userID id.UserID, instrID id.InstructionID) error
	SetDefault(ctx context.Context, userID id.UserID, instrID id.InstructionID) (models.Instruction, error)
}

type Handler struct {
	logger       *slog.Logger
	instructions Service
	jwtValidator authmw.JWTValidator
	revocations  authmw.TokenRevocationChecker
}

func New(instructions Service, jwtValidator authmw.JWTValidator, revocations authmw.TokenRevocationChecker, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		instructions: instructions,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register mounts the instruction routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/instructions", func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/set-default", h.handleSetDefault)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	instrs, err := h.instructions.List(r.Context(), userID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to list instructions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instrs)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	var req models.CreateInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	instr, err := h.instructions.Create(r.Context(), userID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to create instruction")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, instr)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, instrID, ok := h.instructionScope(w, r)
	if !ok {
		return
	}
	instr, err := h.instructions.Get(r.Context(), userID, instrID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to load instruction")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instr)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, instrID, ok := h.instructionScope(w, r)
	if !ok {
		return
	}
	var req models.UpdateInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	instr, err := h.instructions.Update(r.Context(), userID, instrID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to update instruction")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instr)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, instrID, ok := h.instructionScope(w, r)
	if !ok {
		return
	}
	if err := h.instructions.Delete(r.Context(), userID, instrID); err != nil {
		h.fail(r.Context(), w, err, "failed to delete instruction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	userID, instrID, ok := h.instructionScope(w, r)
	if !ok {
		return
	}
	instr, err := h.instructions.SetDefault(r.Context(), userID, instrID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to set default instruction")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instr)
}

func (h *Handler) instructionScope(w http.ResponseWriter, r *http.Request) (id.UserID, id.InstructionID, bool) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return id.UserID{}, id.InstructionID{}, false
	}
	instrID, err := id.ParseInstructionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.InstructionID{}, false
	}
	return userID, instrID, true
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
