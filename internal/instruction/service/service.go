// Package service implements custom-instruction management and resolves the
// system-prompt content the chat module sends upstream.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scubaai/internal/audit"
	"scubaai/internal/instruction/models"
	"scubaai/internal/instruction/store"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// Service is the instruction façade consumed by the HTTP layer and, through
// ResolveContent, by the chat module.
type Service struct {
	instrs    store.Store
	publisher *audit.Publisher
	logger    *slog.Logger
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(instrs store.Store, publisher *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		instrs:    instrs,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the caller's instructions, default first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]models.Instruction, error) {
	instrs, err := s.instrs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list instructions")
	}
	if instrs == nil {
		instrs = []models.Instruction{}
	}
	return instrs, nil
}

// Create adds a new instruction; creating it as default demotes the old one.
func (s *Service) Create(ctx context.Context, userID id.UserID, req models.CreateInstructionRequest) (models.Instruction, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Instruction{}, err
	}

	now := s.clock()
	instr := models.Instruction{
		ID:        id.NewInstructionID(),
		UserID:    userID,
		Name:      req.Name,
		Content:   req.Content,
		IsDefault: req.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.instrs.Create(ctx, instr); err != nil {
		return models.Instruction{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create instruction")
	}

	s.emitChanged(userID, instr.ID, "created")
	return instr, nil
}

// Get loads one owned instruction.
func (s *Service) Get(ctx context.Context, userID id.UserID, instrID id.InstructionID) (models.Instruction, error) {
	return s.loadOwned(ctx, userID, instrID)
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, userID id.UserID, instrID id.InstructionID, req models.UpdateInstructionRequest) (models.Instruction, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Instruction{}, err
	}

	instr, err := s.loadOwned(ctx, userID, instrID)
	if err != nil {
		return models.Instruction{}, err
	}

	if req.Name != nil {
		instr.Name = *req.Name
	}
	if req.Content != nil {
		instr.Content = *req.Content
	}
	if req.IsDefault != nil {
		instr.IsDefault = *req.IsDefault
	}
	instr.UpdatedAt = s.clock()

	if err := s.instrs.Update(ctx, instr); err != nil {
		return models.Instruction{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instruction")
	}

	s.emitChanged(userID, instrID, "updated")
	return instr, nil
}

// Delete removes an owned instruction.
func (s *Service) Delete(ctx context.Context, userID id.UserID, instrID id.InstructionID) error {
	if err := s.instrs.Delete(ctx, instrID, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "instruction not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete instruction")
	}
	s.emitChanged(userID, instrID, "deleted")
	return nil
}

// SetDefault marks one owned instruction as the default, demoting any other.
func (s *Service) SetDefault(ctx context.Context, userID id.UserID, instrID id.InstructionID) (models.Instruction, error) {
	instr, err := s.loadOwned(ctx, userID, instrID)
	if err != nil {
		return models.Instruction{}, err
	}

	instr.IsDefault = true
	instr.UpdatedAt = s.clock()
	if err := s.instrs.Update(ctx, instr); err != nil {
		return models.Instruction{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set default instruction")
	}

	s.emitChanged(userID, instrID, "set_default")
	return instr, nil
}

// Default returns the user's default instruction, or false when none is set.
func (s *Service) Default(ctx context.Context, userID id.UserID) (models.Instruction, bool, error) {
	instr, err := s.instrs.GetDefault(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Instruction{}, false, nil
	}
	if err != nil {
		return models.Instruction{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load default instruction")
	}
	return instr, true, nil
}

// ResolveContent picks the system-prompt content for a completion. A nil
// instructionID falls back to the user's default instruction; the empty
// string tells the caller to use the built-in prompt. An explicit ID that is
// not the caller's yields sentinel.ErrNotFound.
func (s *Service) ResolveContent(ctx context.Context, userID id.UserID, instructionID *id.InstructionID) (string, error) {
	if instructionID != nil {
		instr, err := s.instrs.GetOwned(ctx, *instructionID, userID)
		if err != nil {
			return "", err
		}
		return instr.Content, nil
	}

	instr, err := s.instrs.GetDefault(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return instr.Content, nil
}

func (s *Service) loadOwned(ctx context.Context, userID id.UserID, instrID id.InstructionID) (models.Instruction, error) {
	instr, err := s.instrs.GetOwned(ctx, instrID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Instruction{}, dErrors.New(dErrors.CodeNotFound, "instruction not found")
		}
		return models.Instruction{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load instruction")
	}
	return instr, nil
}

func (s *Service) emitChanged(userID id.UserID, instrID id.InstructionID, detail string) {
	s.publisher.Emit(audit.Event{
		UserID:  userID,
		Action:  audit.ActionInstructionChanged,
		Subject: instrID.String(),
		Detail:  detail,
	})
}
