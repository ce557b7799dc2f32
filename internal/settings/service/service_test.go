package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"scubaai/internal/audit"
	authmodels "scubaai/internal/auth/models"
	chatmodels "scubaai/internal/chat/models"
	instrmodels "scubaai/internal/instruction/models"
	instrservice "scubaai/internal/instruction/service"
	instructions "scubaai/internal/instruction/store/instruction"
	"scubaai/internal/settings/models"
	settings "scubaai/internal/settings/store/setting"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

// stubProfiles serves profiles for the preference and export views.
type stubProfiles struct {
	profiles map[id.UserID]authmodels.Profile
}

func (s *stubProfiles) Profile(_ context.Context, userID id.UserID) (authmodels.Profile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return authmodels.Profile{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return profile, nil
}

// stubConversations serves canned transcripts for the export view.
type stubConversations struct {
	convs   []chatmodels.Conversation
	details map[id.ConversationID]chatmodels.ConversationDetail
}

func (s *stubConversations) ListConversations(_ context.Context, _ id.UserID) ([]chatmodels.Conversation, error) {
	return s.convs, nil
}

func (s *stubConversations) GetConversation(_ context.Context, _ id.UserID, convID id.ConversationID) (chatmodels.ConversationDetail, error) {
	return s.details[convID], nil
}

type SettingsServiceSuite struct {
	suite.Suite
	svc      *Service
	instrSvc *instrservice.Service
	profiles *stubProfiles
	chats    *stubConversations
	adminID  id.UserID
	userID   id.UserID
}

func TestSettingsServiceSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(64, logger)
	s.adminID = id.NewUserID()
	s.userID = id.NewUserID()

	s.instrSvc = instrservice.New(instructions.NewInMemoryStore(), publisher, logger)
	s.profiles = &stubProfiles{profiles: map[id.UserID]authmodels.Profile{
		s.userID: {ID: s.userID.String(), Username: "diver", Email: "diver@example.com", IsActive: true},
	}}
	s.chats = &stubConversations{details: make(map[id.ConversationID]chatmodels.ConversationDetail)}

	s.svc = New(
		settings.NewInMemoryStore(),
		s.profiles,
		s.instrSvc,
		s.chats,
		publisher,
		logger,
	)
}

func (s *SettingsServiceSuite) TestCreateAndDuplicateKey() {
	created, err := s.svc.Create(context.Background(), s.adminID, models.CreateSettingRequest{
		Key: "default_model", Value: "llama-3.3-70b", Description: "fallback model",
	})
	s.Require().NoError(err)
	s.Equal("default_model", created.Key)

	_, err = s.svc.Create(context.Background(), s.adminID, models.CreateSettingRequest{
		Key: "default_model", Value: "other",
	})
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	_, err = s.svc.Create(context.Background(), s.adminID, models.CreateSettingRequest{
		Key: "  ", Value: "x",
	})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *SettingsServiceSuite) TestGetByKeyAndUpdate() {
	created, err := s.svc.Create(context.Background(), s.adminID, models.CreateSettingRequest{
		Key: "stream_enabled", Value: "true",
	})
	s.Require().NoError(err)

	got, err := s.svc.GetByKey(context.Background(), "stream_enabled")
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)

	newValue := "false"
	updated, err := s.svc.Update(context.Background(), s.adminID, created.ID,
		models.UpdateSettingRequest{Value: &newValue})
	s.Require().NoError(err)
	s.Equal("false", updated.Value)
	s.Equal("stream_enabled", updated.Key)

	_, err = s.svc.GetByKey(context.Background(), "missing")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *SettingsServiceSuite) TestDelete() {
	created, err := s.svc.Create(context.Background(), s.adminID, models.CreateSettingRequest{
		Key: "short_lived", Value: "x",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(context.Background(), s.adminID, created.ID))
	err = s.svc.Delete(context.Background(), s.adminID, created.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *SettingsServiceSuite) TestPreferences() {
	s.Run("without a default instruction", func() {
		prefs, err := s.svc.Preferences(context.Background(), s.userID)
		s.Require().NoError(err)
		s.Equal("diver", prefs.Profile.Username)
		s.Nil(prefs.DefaultInstruction)
	})

	s.Run("with a default instruction", func() {
		instr, err := s.instrSvc.Create(context.Background(), s.userID, instrmodels.CreateInstructionRequest{
			Name: "tutor", Content: "Teach patiently.", IsDefault: true,
		})
		s.Require().NoError(err)

		prefs, err := s.svc.Preferences(context.Background(), s.userID)
		s.Require().NoError(err)
		s.Require().NotNil(prefs.DefaultInstruction)
		s.Equal(instr.ID, prefs.DefaultInstruction.ID)
	})
}

func (s *SettingsServiceSuite) TestExport() {
	_, err := s.instrSvc.Create(context.Background(), s.userID, instrmodels.CreateInstructionRequest{
		Name: "tutor", Content: "Teach patiently.",
	})
	s.Require().NoError(err)

	convID := id.NewConversationID()
	conv := chatmodels.Conversation{ID: convID, UserID: s.userID, Title: "Dive log"}
	s.chats.convs = []chatmodels.Conversation{conv}
	s.chats.details[convID] = chatmodels.ConversationDetail{
		Conversation: conv,
		Messages: []chatmodels.Message{
			{ID: id.NewMessageID(), ConversationID: convID, Role: id.RoleUser, Content: "hi"},
		},
	}

	export, err := s.svc.Export(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Equal("diver", export.Profile.Username)
	s.Len(export.Instructions, 1)
	s.Require().Len(export.Conversations, 1)
	s.Len(export.Conversations[0].Messages, 1)
	s.False(export.ExportedAt.IsZero())
}
