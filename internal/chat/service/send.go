package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scubaai/internal/ai"
	"scubaai/internal/audit"
	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// exchange is the shared front half of SendMessage and StreamMessage: the
// user message is persisted before the provider is called, so a provider
// failure never loses what the user typed.
type exchange struct {
	conv    models.Conversation
	userMsg models.Message
	turns   []ai.Message
}

func (s *Service) prepareExchange(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.SendMessageRequest) (exchange, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return exchange{}, err
	}

	conv, err := s.loadOwned(ctx, userID, convID)
	if err != nil {
		return exchange{}, err
	}

	instruction, err := s.resolveInstruction(ctx, userID, req.InstructionID)
	if err != nil {
		return exchange{}, err
	}

	userMsg := models.Message{
		ID:             id.NewMessageID(),
		ConversationID: convID,
		Role:           id.RoleUser,
		Content:        req.Content,
		CreatedAt:      s.clock(),
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		return exchange{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist message")
	}
	s.metrics.MessagesSent.Inc()
	s.publisher.Emit(audit.Event{
		UserID:  userID,
		Action:  audit.ActionMessageSent,
		Subject: convID.String(),
	})

	history, err := s.msgs.ListByConversation(ctx, convID)
	if err != nil {
		return exchange{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}

	turns := make([]ai.Message, 0, len(history)+1)
	turns = append(turns, ai.SystemMessage(instruction))
	for _, msg := range history {
		turns = append(turns, ai.Message{Role: msg.Role, Content: msg.Content})
	}

	return exchange{conv: conv, userMsg: userMsg, turns: turns}, nil
}

func (s *Service) resolveInstruction(ctx context.Context, userID id.UserID, raw *string) (string, error) {
	var instructionID *id.InstructionID
	if raw != nil {
		parsed, err := id.ParseInstructionID(*raw)
		if err != nil {
			return "", err
		}
		instructionID = &parsed
	}
	if s.instructions == nil {
		return "", nil
	}
	content, err := s.instructions.ResolveContent(ctx, userID, instructionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "custom instruction not found")
		}
		return "", err
	}
	return content, nil
}

// finishExchange persists the assistant reply, bumps the conversation and
// derives a title when the thread still carries the placeholder.
func (s *Service) finishExchange(ctx context.Context, ex exchange, reply string) (models.Message, error) {
	assistantMsg := models.Message{
		ID:             id.NewMessageID(),
		ConversationID: ex.conv.ID,
		Role:           id.RoleAssistant,
		Content:        reply,
		CreatedAt:      s.clock(),
	}
	if err := s.msgs.Create(ctx, assistantMsg); err != nil {
		return models.Message{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist assistant message")
	}
	if err := s.convs.Touch(ctx, ex.conv.ID, assistantMsg.CreatedAt); err != nil {
		s.logger.Warn("failed to touch conversation",
			"conversation_id", ex.conv.ID.String(), "error", err)
	}
	s.maybeRetitle(ctx, ex.conv, ex.userMsg.Content)
	return assistantMsg, nil
}

// SendMessage runs one blocking exchange: persist the user turn, call the
// provider over the full transcript, persist the reply.
func (s *Service) SendMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.SendMessageRequest) (models.SendMessageResponse, error) {
	ex, err := s.prepareExchange(ctx, userID, convID, req)
	if err != nil {
		return models.SendMessageResponse{}, err
	}

	reply, err := s.complete(ctx, ex.turns)
	if err != nil {
		s.metrics.CompletionErrors.Inc()
		return models.SendMessageResponse{}, dErrors.Wrap(err, dErrors.CodeUpstream, "completion provider failed")
	}

	assistantMsg, err := s.finishExchange(ctx, ex, reply)
	if err != nil {
		return models.SendMessageResponse{}, err
	}
	return models.SendMessageResponse{UserMessage: ex.userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *Service) complete(ctx context.Context, turns []ai.Message) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ai.complete",
		trace.WithAttributes(attribute.Int("chat.context_messages", len(turns))))
	defer span.End()

	start := s.clock()
	reply, err := s.completer.Complete(ctx, turns)
	s.metrics.ObserveAILatency(s.clock().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return reply, nil
}
