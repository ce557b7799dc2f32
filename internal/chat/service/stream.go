package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scubaai/internal/audit"
	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

// StreamEmitter receives the streamed half of an exchange. Begin is called
// exactly once after validation and ownership checks pass; after Begin the
// stream always terminates through End or Fail, never through a returned
// error.
type StreamEmitter interface {
	Begin() error
	Chunk(text string) error
	End() error
	Fail(err error) error
}

// StreamMessage runs one streamed exchange. Errors before the emitter's
// Begin call are returned so the transport can answer with a plain error
// response; anything after Begin is delivered through the emitter.
func (s *Service) StreamMessage(ctx context.Context, userID id.UserID, convID id.ConversationID, req models.SendMessageRequest, emit StreamEmitter) error {
	ex, err := s.prepareExchange(ctx, userID, convID, req)
	if err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "ai.stream",
		trace.WithAttributes(attribute.Int("chat.context_messages", len(ex.turns))))
	defer span.End()

	start := s.clock()
	stream, err := s.completer.Stream(ctx, ex.turns)
	if err != nil {
		// The stream never opened; a blocking completion still can work.
		span.RecordError(err)
		return s.streamFallback(ctx, ex, emit)
	}
	defer stream.Close()

	if err := emit.Begin(); err != nil {
		return nil
	}

	var assembled strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Upstream died midway. Keep what arrived, tell the client.
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "stream interrupted")
			s.metrics.CompletionErrors.Inc()
			s.metrics.ObserveAILatency(s.clock().Sub(start))
			if assembled.Len() > 0 {
				if _, perr := s.finishExchange(ctx, ex, assembled.String()); perr != nil {
					s.logger.Error("failed to persist partial reply",
						"conversation_id", convID.String(), "error", perr)
				}
			}
			_ = emit.Fail(dErrors.Wrap(err, dErrors.CodeUpstream, "completion stream interrupted"))
			return nil
		}

		if err := emit.Chunk(chunk); err != nil {
			// Client went away. The text so far is still worth keeping.
			s.logger.Info("client disconnected mid-stream",
				"conversation_id", convID.String())
			assembled.WriteString(chunk)
			if _, perr := s.finishExchange(ctx, ex, assembled.String()); perr != nil {
				s.logger.Error("failed to persist partial reply",
					"conversation_id", convID.String(), "error", perr)
			}
			return nil
		}
		s.metrics.TokensStreamed.Inc()
		assembled.WriteString(chunk)
	}
	s.metrics.ObserveAILatency(s.clock().Sub(start))

	if _, err := s.finishExchange(ctx, ex, assembled.String()); err != nil {
		_ = emit.Fail(err)
		return nil
	}
	return emit.End()
}

// streamFallback delivers a blocking completion as a single chunk when the
// provider refuses to open a stream.
func (s *Service) streamFallback(ctx context.Context, ex exchange, emit StreamEmitter) error {
	s.metrics.StreamFallbacks.Inc()
	s.publisher.Emit(audit.Event{
		UserID:  ex.conv.UserID,
		Action:  audit.ActionStreamFallback,
		Subject: ex.conv.ID.String(),
	})
	s.logger.Warn("stream unavailable, falling back to blocking completion",
		"conversation_id", ex.conv.ID.String())

	reply, err := s.complete(ctx, ex.turns)
	if err != nil {
		s.metrics.CompletionErrors.Inc()
		return dErrors.Wrap(err, dErrors.CodeUpstream, "completion provider failed")
	}

	if err := emit.Begin(); err != nil {
		return nil
	}
	if _, err := s.finishExchange(ctx, ex, reply); err != nil {
		_ = emit.Fail(err)
		return nil
	}
	if err := emit.Chunk(reply); err != nil {
		return nil
	}
	s.metrics.TokensStreamed.Inc()
	return emit.End()
}
