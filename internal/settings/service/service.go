// Package service implements admin-managed system settings plus the per-user
// preferences and data-export views that pull from the other modules.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scubaai/internal/audit"
	authmodels "scubaai/internal/auth/models"
	chatmodels "scubaai/internal/chat/models"
	instrmodels "scubaai/internal/instruction/models"
	"scubaai/internal/settings/models"
	"scubaai/internal/settings/store"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// ProfileSource reads the caller's account profile.
type ProfileSource interface {
	Profile(ctx context.Context, userID id.UserID) (authmodels.Profile, error)
}

// InstructionSource reads the caller's custom instructions.
type InstructionSource interface {
	List(ctx context.Context, userID id.UserID) ([]instrmodels.Instruction, error)
	Default(ctx context.Context, userID id.UserID) (instrmodels.Instruction, bool, error)
}

// ConversationSource reads the caller's conversations with transcripts.
type ConversationSource interface {
	ListConversations(ctx context.Context, userID id.UserID) ([]chatmodels.Conversation, error)
	GetConversation(ctx context.Context, userID id.UserID, convID id.ConversationID) (chatmodels.ConversationDetail, error)
}

// Service is the settings façade consumed by the HTTP layer.
type Service struct {
	settings      store.Store
	profiles      ProfileSource
	instructions  InstructionSource
	conversations ConversationSource
	publisher     *audit.Publisher
	logger        *slog.Logger
	clock         func() time.Time
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
	settings store.Store,
	profiles ProfileSource,
	instructions InstructionSource,
	conversations ConversationSource,
	publisher *audit.Publisher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		settings:      settings,
		profiles:      profiles,
		instructions:  instructions,
		conversations: conversations,
		publisher:     publisher,
		logger:        logger,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all system settings.
func (s *Service) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list settings")
	}
	if settings == nil {
		settings = []models.Setting{}
	}
	return settings, nil
}

// GetByKey looks one setting up by its key.
func (s *Service) GetByKey(ctx context.Context, key string) (models.Setting, error) {
	setting, err := s.settings.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Setting{}, dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return models.Setting{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load setting")
	}
	return setting, nil
}

// Create adds a new setting. Duplicate keys are conflicts.
func (s *Service) Create(ctx context.Context, adminID id.UserID, req models.CreateSettingRequest) (models.Setting, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Setting{}, err
	}

	setting := models.Setting{
		ID:          id.NewSettingID(),
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
		UpdatedAt:   s.clock(),
	}
	if err := s.settings.Create(ctx, setting); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Setting{}, dErrors.New(dErrors.CodeConflict, "setting key already exists")
		}
		return models.Setting{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create setting")
	}

	s.emitChanged(adminID, setting.Key, "created")
	return setting, nil
}

// Update changes a setting's value or description. Keys are immutable.
func (s *Service) Update(ctx context.Context, adminID id.UserID, settingID id.SettingID, req models.UpdateSettingRequest) (models.Setting, error) {
	setting, err := s.settings.GetByID(ctx, settingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Setting{}, dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return models.Setting{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load setting")
	}

	if req.Value != nil {
		setting.Value = *req.Value
	}
	if req.Description != nil {
		setting.Description = *req.Description
	}
	setting.UpdatedAt = s.clock()

	if err := s.settings.Update(ctx, setting); err != nil {
		return models.Setting{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update setting")
	}

	s.emitChanged(adminID, setting.Key, "updated")
	return setting, nil
}

// Delete removes a setting.
func (s *Service) Delete(ctx context.Context, adminID id.UserID, settingID id.SettingID) error {
	setting, err := s.settings.GetByID(ctx, settingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "setting not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load setting")
	}
	if err := s.settings.Delete(ctx, settingID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete setting")
	}
	s.emitChanged(adminID, setting.Key, "deleted")
	return nil
}

// Preferences assembles the caller's profile and default instruction.
func (s *Service) Preferences(ctx context.Context, userID id.UserID) (models.Preferences, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return models.Preferences{}, err
	}

	prefs := models.Preferences{Profile: profile}
	instr, ok, err := s.instructions.Default(ctx, userID)
	if err != nil {
		return models.Preferences{}, err
	}
	if ok {
		prefs.DefaultInstruction = &instr
	}
	return prefs, nil
}

// Export assembles the caller's full data as one document.
func (s *Service) Export(ctx context.Context, userID id.UserID) (models.Export, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return models.Export{}, err
	}

	instrs, err := s.instructions.List(ctx, userID)
	if err != nil {
		return models.Export{}, err
	}

	convs, err := s.conversations.ListConversations(ctx, userID)
	if err != nil {
		return models.Export{}, err
	}
	details := make([]chatmodels.ConversationDetail, 0, len(convs))
	for _, conv := range convs {
		detail, err := s.conversations.GetConversation(ctx, userID, conv.ID)
		if err != nil {
			return models.Export{}, err
		}
		details = append(details, detail)
	}

	return models.Export{
		ExportedAt:    s.clock(),
		Profile:       profile,
		Instructions:  instrs,
		Conversations: details,
	}, nil
}

func (s *Service) emitChanged(adminID id.UserID, key, detail string) {
	s.publisher.Emit(audit.Event{
		UserID:  adminID,
		Action:  audit.ActionSettingChanged,
		Subject: key,
		Detail:  detail,
	})
}
