package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/mock/gomock"

	"scubaai/internal/ai/mocks"
	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// recordingEmitter captures the stream lifecycle so tests can assert on
// exactly what a client would have seen.
type recordingEmitter struct {
	began    bool
	chunks   []string
	ended    bool
	failed   error
	chunkErr error
}

func (e *recordingEmitter) Begin() error { e.began = true; return nil }

func (e *recordingEmitter) Chunk(text string) error {
	if e.chunkErr != nil {
		return e.chunkErr
	}
	e.chunks = append(e.chunks, text)
	return nil
}

func (e *recordingEmitter) End() error { e.ended = true; return nil }

func (e *recordingEmitter) Fail(err error) error { e.failed = err; return nil }

func (s *ChatServiceSuite) TestStreamMessageHappyPath() {
	conv := s.createConversation("Streaming")

	stream := mocks.NewMockTokenStream(s.ctrl)
	gomock.InOrder(
		stream.EXPECT().Recv().Return("Hel", nil),
		stream.EXPECT().Recv().Return("lo ", nil),
		stream.EXPECT().Recv().Return("diver", nil),
		stream.EXPECT().Recv().Return("", io.EOF),
	)
	stream.EXPECT().Close().Return(nil)
	s.completer.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(stream, nil)

	emitter := &recordingEmitter{}
	err := s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "Say hello"}, emitter)
	s.Require().NoError(err)

	s.True(emitter.began)
	s.Equal([]string{"Hel", "lo ", "diver"}, emitter.chunks)
	s.True(emitter.ended)
	s.NoError(emitter.failed)

	detail, gerr := s.svc.GetConversation(context.Background(), s.userID, conv.ID)
	s.Require().NoError(gerr)
	s.Require().Len(detail.Messages, 2)
	s.Equal("Hello diver", detail.Messages[1].Content)
	s.Equal(id.RoleAssistant, detail.Messages[1].Role)
}

func (s *ChatServiceSuite) TestStreamMessageMidStreamFailurePersistsPartial() {
	conv := s.createConversation("Interrupted")

	stream := mocks.NewMockTokenStream(s.ctrl)
	gomock.InOrder(
		stream.EXPECT().Recv().Return("partial ", nil),
		stream.EXPECT().Recv().Return("answer", nil),
		stream.EXPECT().Recv().Return("", fmt.Errorf("%w: connection reset", sentinel.ErrUnavailable)),
	)
	stream.EXPECT().Close().Return(nil)
	s.completer.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(stream, nil)

	emitter := &recordingEmitter{}
	err := s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "go on"}, emitter)
	s.Require().NoError(err, "post-Begin failures are delivered through the emitter")

	s.Error(emitter.failed)
	s.False(emitter.ended)

	detail, gerr := s.svc.GetConversation(context.Background(), s.userID, conv.ID)
	s.Require().NoError(gerr)
	s.Require().Len(detail.Messages, 2)
	s.Equal("partial answer", detail.Messages[1].Content)
}

func (s *ChatServiceSuite) TestStreamMessageFallsBackToBlocking() {
	conv := s.createConversation("Fallback")

	s.completer.EXPECT().Stream(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: streaming disabled", sentinel.ErrUnavailable))
	s.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return("Blocking answer", nil)

	emitter := &recordingEmitter{}
	err := s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "anyone there?"}, emitter)
	s.Require().NoError(err)

	s.Equal([]string{"Blocking answer"}, emitter.chunks)
	s.True(emitter.ended)

	detail, gerr := s.svc.GetConversation(context.Background(), s.userID, conv.ID)
	s.Require().NoError(gerr)
	s.Require().Len(detail.Messages, 2)
	s.Equal("Blocking answer", detail.Messages[1].Content)
}

func (s *ChatServiceSuite) TestStreamMessageFallbackFailureIsUpstreamError() {
	conv := s.createConversation("Down")

	s.completer.EXPECT().Stream(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: streaming disabled", sentinel.ErrUnavailable))
	s.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("%w: provider down", sentinel.ErrUnavailable))

	emitter := &recordingEmitter{}
	err := s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "anyone there?"}, emitter)
	s.True(dErrors.Is(err, dErrors.CodeUpstream))
	s.False(emitter.began, "no stream output before a plain error response")

	detail, gerr := s.svc.GetConversation(context.Background(), s.userID, conv.ID)
	s.Require().NoError(gerr)
	s.Require().Len(detail.Messages, 1, "the user message survives the failed exchange")
}

func (s *ChatServiceSuite) TestStreamMessageClientDisconnectPersistsPartial() {
	conv := s.createConversation("Gone")

	stream := mocks.NewMockTokenStream(s.ctrl)
	stream.EXPECT().Recv().Return("kept", nil)
	stream.EXPECT().Close().Return(nil)
	s.completer.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(stream, nil)

	emitter := &recordingEmitter{chunkErr: fmt.Errorf("client hung up")}
	err := s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "still there?"}, emitter)
	s.Require().NoError(err)

	detail, gerr := s.svc.GetConversation(context.Background(), s.userID, conv.ID)
	s.Require().NoError(gerr)
	s.Require().Len(detail.Messages, 2)
	s.Equal("kept", detail.Messages[1].Content)
}

func (s *ChatServiceSuite) TestStreamMessageOwnershipAndValidation() {
	conv := s.createConversation("Guarded")

	emitter := &recordingEmitter{}
	err := s.svc.StreamMessage(context.Background(), id.NewUserID(), conv.ID,
		models.SendMessageRequest{Content: "hi"}, emitter)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.False(emitter.began)

	err = s.svc.StreamMessage(context.Background(), s.userID, conv.ID,
		models.SendMessageRequest{Content: "   "}, emitter)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	s.False(emitter.began)
}
