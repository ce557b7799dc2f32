// Package service orchestrates conversations: ownership-scoped CRUD, message
// exchange against the completion provider, streaming with a blocking
// fallback, and title derivation from the first message.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"scubaai/internal/ai"
	"scubaai/internal/audit"
	"scubaai/internal/chat/models"
	"scubaai/internal/chat/store"
	"scubaai/internal/platform/metrics"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// InstructionResolver resolves the system-prompt content for a completion.
// An explicit instructionID that does not belong to the user is a not-found
// error; a nil instructionID resolves to the user's default instruction, or
// to the empty string when none is set.
type InstructionResolver interface {
	ResolveContent(ctx context.Context, userID id.UserID, instructionID *id.InstructionID) (string, error)
}

// Service is the chat façade consumed by the HTTP layer.
type Service struct {
	convs        store.ConversationStore
	msgs         store.MessageStore
	completer    ai.Completer
	instructions InstructionResolver
	publisher    *audit.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	clock        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(
	convs store.ConversationStore,
	msgs store.MessageStore,
	completer ai.Completer,
	instructions InstructionResolver,
	publisher *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		convs:        convs,
		msgs:         msgs,
		completer:    completer,
		instructions: instructions,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		tracer:       otel.Tracer("scubaai/chat"),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation opens a new thread. An empty title gets the placeholder;
// the real title is derived when the first message arrives.
func (s *Service) CreateConversation(ctx context.Context, userID id.UserID, req models.CreateConversationRequest) (models.Conversation, error) {
	req.Normalize()
	if utf8.RuneCountInString(req.Title) > models.MaxTitleLength {
		return models.Conversation{}, dErrors.New(dErrors.CodeBadRequest, "title too long")
	}
	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}

	now := s.clock()
	conv := models.Conversation{
		ID:        id.NewConversationID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return models.Conversation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create conversation")
	}

	s.publisher.Emit(audit.Event{
		UserID:  userID,
		Action:  audit.ActionConversationCreated,
		Subject: conv.ID.String(),
	})
	return conv, nil
}

// ListConversations returns the caller's threads, most recently updated first.
func (s *Service) ListConversations(ctx context.Context, userID id.UserID) ([]models.Conversation, error) {
	convs, err := s.convs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list conversations")
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

// GetConversation loads a thread with its transcript, oldest message first.
func (s *Service) GetConversation(ctx context.Context, userID id.UserID, convID id.ConversationID) (models.ConversationDetail, error) {
	conv, err := s.loadOwned(ctx, userID, convID)
	if err != nil {
		return models.ConversationDetail{}, err
	}
	msgs, err := s.msgs.ListByConversation(ctx, convID)
	if err != nil {
		return models.ConversationDetail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load messages")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return models.ConversationDetail{Conversation: conv, Messages: msgs}, nil
}

// RenameConversation sets an explicit title.
func (s *Service) RenameConversation(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.UpdateTitleRequest) (models.Conversation, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Conversation{}, err
	}
	conv, err := s.loadOwned(ctx, userID, convID)
	if err != nil {
		return models.Conversation{}, err
	}

	now := s.clock()
	if err := s.convs.UpdateTitle(ctx, convID, req.Title, now); err != nil {
		return models.Conversation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename conversation")
	}
	conv.Title = req.Title
	conv.UpdatedAt = now
	return conv, nil
}

// DeleteConversation removes a thread and its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID id.UserID, convID id.ConversationID) error {
	if _, err := s.loadOwned(ctx, userID, convID); err != nil {
		return err
	}
	if err := s.convs.Delete(ctx, convID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete conversation")
	}
	s.publisher.Emit(audit.Event{
		UserID:  userID,
		Action:  audit.ActionConversationDeleted,
		Subject: convID.String(),
	})
	return nil
}

// DeleteMessage removes one message from a thread the caller owns. A message
// living in a different conversation is reported as missing, never as
// forbidden.
func (s *Service) DeleteMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, msgID id.MessageID) error {
	if _, err := s.loadOwned(ctx, userID, convID); err != nil {
		return err
	}
	msg, err := s.msgs.Get(ctx, msgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "message not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load message")
	}
	if msg.ConversationID != convID {
		return dErrors.New(dErrors.CodeNotFound, "message not found")
	}
	if err := s.msgs.Delete(ctx, msgID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete message")
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, userID id.UserID, convID id.ConversationID) (models.Conversation, error) {
	conv, err := s.convs.GetOwned(ctx, convID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Conversation{}, dErrors.New(dErrors.CodeNotFound, "conversation not found")
		}
		return models.Conversation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load conversation")
	}
	return conv, nil
}

// deriveTitle produces a conversation title from the first user message.
// Short messages become the title verbatim; longer ones are summarized by
// the provider, with plain truncation when the provider is unavailable.
func (s *Service) deriveTitle(ctx context.Context, firstMessage string) string {
	trimmed := strings.TrimSpace(firstMessage)
	if trimmed == "" {
		return models.DefaultTitle
	}
	if utf8.RuneCountInString(trimmed) <= models.MaxTitleLength {
		return trimmed
	}

	title, err := s.completer.GenerateTitle(ctx, trimmed)
	if err != nil {
		s.logger.Warn("title generation failed, truncating", "error", err)
		return truncateTitle(trimmed)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.DefaultTitle
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return truncateTitle(title)
	}
	return title
}

// truncateTitle cuts at a rune boundary so multibyte input never yields a
// torn sequence.
func truncateTitle(s string) string {
	runes := []rune(s)
	return string(runes[:models.MaxTitleLength-3]) + "..."
}

// maybeRetitle assigns a derived title to a conversation still carrying the
// placeholder. Failures are logged, never surfaced; the exchange already
// succeeded.
func (s *Service) maybeRetitle(ctx context.Context, conv models.Conversation, firstMessage string) {
	if conv.Title != "" && conv.Title != models.DefaultTitle {
		return
	}
	title := s.deriveTitle(ctx, firstMessage)
	if title == conv.Title {
		return
	}
	if err := s.convs.UpdateTitle(ctx, conv.ID, title, s.clock()); err != nil {
		s.logger.Warn("failed to set derived title",
			"conversation_id", conv.ID.String(), "error", err)
	}
}
