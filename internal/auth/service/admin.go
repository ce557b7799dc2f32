package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"scubaai/internal/audit"
	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

const (
	bootstrapUsername = "admin"
	bootstrapEmail    = "admin@scubaai.local"
)

// EnsureAdmin seeds the bootstrap administrator account on startup if no
// user named "admin" exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, initialPassword string) error {
	_, err := s.users.GetByUsername(ctx, bootstrapUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash admin password")
	}

	now := s.clock()
	admin := models.User{
		ID:           id.NewUserID(),
		Username:     bootstrapUsername,
		Email:        bootstrapEmail,
		PasswordHash: string(hash),
		IsAdmin:      true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		// Lost a race against another instance seeding the same account.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin account")
	}

	s.logger.InfoContext(ctx, "bootstrap admin account created", "user_id", admin.ID.String())
	return nil
}

// ListUsers returns every account, oldest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	profiles := make([]models.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, models.ProfileOf(user))
	}
	return profiles, nil
}

// ToggleActive flips the target's active flag. Admins cannot deactivate
// themselves.
func (s *Service) ToggleActive(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error) {
	if adminID == targetID {
		return models.Profile{}, dErrors.New(dErrors.CodeBadRequest, "cannot change your own active status")
	}

	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return models.Profile{}, err
	}

	user.IsActive = !user.IsActive
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	action := audit.ActionUserDeactivated
	if user.IsActive {
		action = audit.ActionUserReactivated
	}
	s.publisher.Emit(audit.Event{
		UserID:  adminID,
		Action:  action,
		Subject: user.Username,
	})
	return models.ProfileOf(user), nil
}

// Promote grants admin rights to the target.
func (s *Service) Promote(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error) {
	return s.setAdmin(ctx, adminID, targetID, true)
}

// Demote removes admin rights. Admins cannot demote themselves, so the
// system always keeps at least one reachable admin.
func (s *Service) Demote(ctx context.Context, adminID, targetID id.UserID) (models.Profile, error) {
	if adminID == targetID {
		return models.Profile{}, dErrors.New(dErrors.CodeBadRequest, "cannot demote yourself")
	}
	return s.setAdmin(ctx, adminID, targetID, false)
}

func (s *Service) setAdmin(ctx context.Context, adminID, targetID id.UserID, isAdmin bool) (models.Profile, error) {
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return models.Profile{}, err
	}

	user.IsAdmin = isAdmin
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	action := audit.ActionUserDemoted
	if isAdmin {
		action = audit.ActionUserPromoted
	}
	s.publisher.Emit(audit.Event{
		UserID:  adminID,
		Action:  action,
		Subject: user.Username,
	})
	return models.ProfileOf(user), nil
}

// DeleteUser removes the account; the database cascades conversations,
// messages, instructions and sessions.
func (s *Service) DeleteUser(ctx context.Context, adminID, targetID id.UserID) error {
	if adminID == targetID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot delete your own account")
	}

	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	if err := s.sessions.DeleteByUser(ctx, targetID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear sessions for deleted user",
			"user_id", targetID.String(),
			"error", err,
		)
	}

	s.publisher.Emit(audit.Event{
		UserID:  adminID,
		Action:  audit.ActionUserDeleted,
		Subject: user.Username,
	})
	return nil
}

// UserStats reports the target's content counts and last activity.
func (s *Service) UserStats(ctx context.Context, targetID id.UserID) (models.UserStats, error) {
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return models.UserStats{}, err
	}

	stats := models.UserStats{
		UserID:   user.ID.String(),
		Username: user.Username,
	}

	if s.activity != nil {
		conversations, messages, instructions, err := s.activity.CountsForUser(ctx, targetID)
		if err != nil {
			return models.UserStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count user activity")
		}
		stats.Conversations = conversations
		stats.Messages = messages
		stats.Instructions = instructions
	}

	sessions, err := s.sessions.ListByUser(ctx, targetID)
	if err != nil {
		return models.UserStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	if len(sessions) > 0 {
		last := sessions[0].LastSeenAt
		for _, session := range sessions[1:] {
			if session.LastSeenAt.After(last) {
				last = session.LastSeenAt
			}
		}
		stats.LastActive = &last
	}

	return stats, nil
}

func (s *Service) loadUser(ctx context.Context, userID id.UserID) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
