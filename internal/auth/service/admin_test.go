package service

import (
	"context"
	"time"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

type staticCounter struct {
	conversations int
	messages      int
	instructions  int
}

func (c staticCounter) CountsForUser(context.Context, id.UserID) (int, int, int, error) {
	return c.conversations, c.messages, c.instructions, nil
}

// adminAndTarget registers a fresh admin/target pair; prefix keeps usernames
// unique across subtests sharing one store.
func (s *AuthServiceSuite) adminAndTarget(prefix string) (id.UserID, id.UserID) {
	adminProfile := s.register(prefix + "_admin")
	targetProfile := s.register(prefix + "_target")
	adminID, err := id.ParseUserID(adminProfile.ID)
	s.Require().NoError(err)
	targetID, err := id.ParseUserID(targetProfile.ID)
	s.Require().NoError(err)
	return adminID, targetID
}

func (s *AuthServiceSuite) TestEnsureAdmin() {
	s.Run("seeds admin account once", func() {
		s.Require().NoError(s.svc.EnsureAdmin(context.Background(), "scubaadmin"))

		admin, err := s.users.GetByUsername(context.Background(), "admin")
		s.Require().NoError(err)
		s.True(admin.IsAdmin)
		s.True(admin.IsActive)

		// Second call must be a no-op, not a conflict.
		s.Require().NoError(s.svc.EnsureAdmin(context.Background(), "different"))

		_, err = s.svc.Login(context.Background(),
			models.LoginRequest{Username: "admin", Password: "scubaadmin"}, "", "")
		s.NoError(err)
	})
}

func (s *AuthServiceSuite) TestToggleActive() {
	s.Run("flips active flag both ways", func() {
		adminID, targetID := s.adminAndTarget("toggle1")

		profile, err := s.svc.ToggleActive(context.Background(), adminID, targetID)
		s.Require().NoError(err)
		s.False(profile.IsActive)

		profile, err = s.svc.ToggleActive(context.Background(), adminID, targetID)
		s.Require().NoError(err)
		s.True(profile.IsActive)
	})

	s.Run("self-deactivation is rejected", func() {
		adminID, _ := s.adminAndTarget("toggle2")
		_, err := s.svc.ToggleActive(context.Background(), adminID, adminID)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown target is not found", func() {
		adminID, _ := s.adminAndTarget("toggle3")
		_, err := s.svc.ToggleActive(context.Background(), adminID, id.NewUserID())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *AuthServiceSuite) TestPromoteDemote() {
	s.Run("promote grants and demote removes admin", func() {
		adminID, targetID := s.adminAndTarget("promo1")

		profile, err := s.svc.Promote(context.Background(), adminID, targetID)
		s.Require().NoError(err)
		s.True(profile.IsAdmin)

		profile, err = s.svc.Demote(context.Background(), adminID, targetID)
		s.Require().NoError(err)
		s.False(profile.IsAdmin)
	})

	s.Run("self-demotion is rejected", func() {
		adminID, _ := s.adminAndTarget("promo2")
		_, err := s.svc.Demote(context.Background(), adminID, adminID)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *AuthServiceSuite) TestDeleteUser() {
	s.Run("removes account and sessions", func() {
		adminID, targetID := s.adminAndTarget("del1")
		_, err := s.svc.Login(context.Background(),
			models.LoginRequest{Username: "del1_target", Password: "secret1"}, "", "")
		s.Require().NoError(err)

		s.Require().NoError(s.svc.DeleteUser(context.Background(), adminID, targetID))

		_, err = s.users.GetByID(context.Background(), targetID)
		s.Error(err)
		remaining, err := s.sessions.ListByUser(context.Background(), targetID)
		s.Require().NoError(err)
		s.Empty(remaining)
	})

	s.Run("self-deletion is rejected", func() {
		adminID, _ := s.adminAndTarget("del2")
		err := s.svc.DeleteUser(context.Background(), adminID, adminID)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *AuthServiceSuite) TestUserStats() {
	s.Run("reports counts and last activity", func() {
		s.svc.activity = staticCounter{conversations: 3, messages: 12, instructions: 2}
		_, targetID := s.adminAndTarget("stats1")

		_, err := s.svc.Login(context.Background(),
			models.LoginRequest{Username: "stats1_target", Password: "secret1"}, "", "")
		s.Require().NoError(err)

		stats, err := s.svc.UserStats(context.Background(), targetID)
		s.Require().NoError(err)
		s.Equal(3, stats.Conversations)
		s.Equal(12, stats.Messages)
		s.Equal(2, stats.Instructions)
		s.Require().NotNil(stats.LastActive)
		s.WithinDuration(time.Now(), *stats.LastActive, time.Minute)
	})

	s.Run("no sessions means no last activity", func() {
		s.svc.activity = nil
		_, targetID := s.adminAndTarget("stats2")
		stats, err := s.svc.UserStats(context.Background(), targetID)
		s.Require().NoError(err)
		s.Nil(stats.LastActive)
		s.Zero(stats.Conversations)
	})
}
