// Package handler exposes the chat module over HTTP under /api/conversations.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scubaai/internal/chat/models"
	"scubaai/internal/chat/service"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/httputil"
	authmw "scubaai/pkg/platform/middleware/auth"
	"scubaai/pkg/platform/middleware/request"
)

// Service is the chat façade the handler drives.
type Service interface {
	CreateConversation(ctx context.Context, userID id.UserID, req models.CreateConversationRequest) (models.Conversation, error)
	ListConversations(ctx context.Context, userID id.UserID) ([]models.Conversation, error)
	GetConversation(ctx context.Context, userID id.UserID, convID id.ConversationID) (models.ConversationDetail, error)
	RenameConversation(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.UpdateTitleRequest) (models.Conversation, error)
	DeleteConversation(ctx context.Context, userID id.UserID, convID id.ConversationID) error
	DeleteMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, msgID id.MessageID) error
	SendMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.SendMessageRequest) (models.SendMessageResponse, error)
	StreamMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.SendMessageRequest, emit service.StreamEmitter) error
}

type Handler struct {
	logger          *slog.Logger
	chat            Service
	jwtValidator    authmw.JWTValidator
	revocations     authmw.TokenRevocationChecker
	completionLimit func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithCompletionLimit rate limits the two completion routes. The rest of the
// conversation surface stays unthrottled.
func WithCompletionLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.completionLimit = mw
	}
}

func New(chat Service, jwtValidator authmw.JWTValidator, revocations authmw.TokenRevocationChecker, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		chat:         chat,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the conversation routes. Everything requires a valid
// access token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Use(authmw.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/title", h.handleRenameTitle)
		r.Delete("/{id}/messages/{messageID}", h.handleDeleteMessage)

		r.Group(func(r chi.Router) {
			if h.completionLimit != nil {
				r.Use(h.completionLimit)
			}
			r.Post("/{id}/messages", h.handleSendMessage)
			r.Post("/{id}/stream", h.handleStreamMessage)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	convs, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to list conversations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, convs)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return
	}
	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	conv, err := h.chat.CreateConversation(r.Context(), userID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to create conversation")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	detail, err := h.chat.GetConversation(r.Context(), userID, convID)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to load conversation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	if err := h.chat.DeleteConversation(r.Context(), userID, convID); err != nil {
		h.fail(r.Context(), w, err, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRenameTitle(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	var req models.UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	conv, err := h.chat.RenameConversation(r.Context(), userID, convID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "failed to rename conversation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	resp, err := h.chat.SendMessage(r.Context(), userID, convID, req)
	if err != nil {
		h.fail(r.Context(), w, err, "message exchange failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleStreamMessage(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.chat.StreamMessage(r.Context(), userID, convID, req, newSSEEmitter(w)); err != nil {
		// The stream never started; answer like any other endpoint.
		h.fail(r.Context(), w, err, "streamed exchange failed")
	}
}

func (h *Handler) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, convID, ok := h.conversationScope(w, r)
	if !ok {
		return
	}
	msgID, err := id.ParseMessageID(chi.URLParam(r, "messageID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.chat.DeleteMessage(r.Context(), userID, convID, msgID); err != nil {
		h.fail(r.Context(), w, err, "failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// conversationScope resolves the caller and the conversation the route
// targets, writing the error response itself when either is missing.
func (h *Handler) conversationScope(w http.ResponseWriter, r *http.Request) (id.UserID, id.ConversationID, bool) {
	userID, ok := h.currentUser(r.Context(), w)
	if !ok {
		return id.UserID{}, id.ConversationID{}, false
	}
	convID, err := id.ParseConversationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.ConversationID{}, false
	}
	return userID, convID, true
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
