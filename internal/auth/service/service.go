// Package service implements account and session operations: registration,
// login, token refresh, logout via JTI revocation, profile management, and
// the admin user surface.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"scubaai/internal/audit"
	"scubaai/internal/auth/device"
	"scubaai/internal/auth/models"
	"scubaai/internal/auth/store"
	"scubaai/internal/platform/metrics"
	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
	"scubaai/pkg/platform/sentinel"
)

// TokenIssuer abstracts JWT issuance so the service never touches signing
// details.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, isAdmin bool) (string, error)
	GenerateRefreshToken(userID id.UserID, isAdmin bool) (string, error)
	ValidateRefreshToken(tokenString string) (id.UserID, error)
	AccessTTL() time.Duration
}

// ActivityCounter reports per-user content counts owned by other modules.
// A nil counter yields zero stats.
type ActivityCounter interface {
	CountsForUser(ctx context.Context, userID id.UserID) (conversations, messages, instructions int, err error)
}

// Service is the auth façade consumed by the HTTP layer.
type Service struct {
	users       store.UserStore
	sessions    store.SessionStore
	revocations store.RevocationList
	tokens      TokenIssuer
	activity    ActivityCounter
	publisher   *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	clock       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithActivityCounter wires the cross-module stats source for admin views.
func WithActivityCounter(counter ActivityCounter) Option {
	return func(s *Service) {
		s.activity = counter
	}
}

func New(
	users store.UserStore,
	sessions store.SessionStore,
	revocations store.RevocationList,
	tokens TokenIssuer,
	publisher *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		users:       users,
		sessions:    sessions,
		revocations: revocations,
		tokens:      tokens,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account. Username and email collisions are 409s.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := s.clock()
	user := models.User{
		ID:           id.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Profile{}, dErrors.New(dErrors.CodeConflict, "username or email already taken")
		}
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.UsersCreated.Inc()
	s.publisher.Emit(audit.Event{
		UserID:  user.ID,
		Action:  audit.ActionUserRegistered,
		Subject: user.Username,
	})
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)

	return models.ProfileOf(user), nil
}

// Login verifies credentials, records a session and issues a token pair.
// Wrong username, wrong password and disabled account all return the same
// 401 so the response does not reveal which part failed.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, userAgent, clientIP string) (models.TokenPair, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TokenPair{}, s.loginFailure(ctx, req.Username, "unknown user")
		}
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return models.TokenPair{}, s.loginFailure(ctx, req.Username, "bad password")
	}
	if !user.IsActive {
		return models.TokenPair{}, s.loginFailure(ctx, req.Username, "account disabled")
	}

	pair, err := s.issueTokens(user, true)
	if err != nil {
		return models.TokenPair{}, err
	}

	now := s.clock()
	session := models.Session{
		ID:         id.NewSessionID(),
		UserID:     user.ID,
		DeviceName: device.ParseUserAgent(userAgent),
		ClientIP:   clientIP,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		// The login still succeeds; the sessions screen just misses an entry.
		s.logger.WarnContext(ctx, "failed to record session",
			"user_id", user.ID.String(),
			"error", err,
		)
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.publisher.Emit(audit.Event{
		UserID:  user.ID,
		Action:  audit.ActionLoginSucceeded,
		Subject: user.Username,
		Detail:  session.DeviceName,
	})

	return pair, nil
}

func (s *Service) loginFailure(ctx context.Context, username, reason string) error {
	s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
	s.publisher.Emit(audit.Event{
		Action:  audit.ActionLoginFailed,
		Subject: username,
		Detail:  reason,
	})
	s.logger.InfoContext(ctx, "login rejected",
		"username", username,
		"reason", reason,
	)
	return dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
}

// Refresh validates a refresh token and issues a fresh access token. The
// user is re-read so deactivation takes effect before the old refresh token
// expires.
func (s *Service) Refresh(ctx context.Context, req models.RefreshRequest) (models.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return models.TokenPair{}, err
	}

	userID, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return models.TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
		}
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive {
		return models.TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "account disabled")
	}

	pair, err := s.issueTokens(user, false)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.publisher.Emit(audit.Event{
		UserID: user.ID,
		Action: audit.ActionTokenRefreshed,
		Subject: user.Username,
	})

	return pair, nil
}

// Logout revokes the current access token's JTI for the token's remaining
// lifetime; AccessTTL is a safe upper bound.
func (s *Service) Logout(ctx context.Context, userID id.UserID, jti string) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeBadRequest, "missing token id")
	}
	if err := s.revocations.Revoke(ctx, jti, s.tokens.AccessTTL()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.publisher.Emit(audit.Event{
		UserID: userID,
		Action: audit.ActionLogout,
	})
	return nil
}

// Profile returns the caller's account view.
func (s *Service) Profile(ctx context.Context, userID id.UserID) (models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Profile{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return models.ProfileOf(user), nil
}

// UpdateProfile changes the caller's email, re-checking uniqueness.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, req models.UpdateProfileRequest) (models.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.Profile{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Profile{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	user.Email = req.Email
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Profile{}, dErrors.New(dErrors.CodeConflict, "email already taken")
		}
		return models.Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return models.ProfileOf(user), nil
}

// ChangePassword verifies the current password before rotating the hash.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, req models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	s.publisher.Emit(audit.Event{
		UserID: user.ID,
		Action: audit.ActionPasswordChanged,
	})
	return nil
}

// Sessions lists the caller's recorded logins, newest activity first.
func (s *Service) Sessions(ctx context.Context, userID id.UserID) ([]models.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, models.SessionSummary{
			SessionID:  session.ID.String(),
			Device:     session.DeviceName,
			IPAddress:  session.ClientIP,
			CreatedAt:  session.CreatedAt,
			LastSeenAt: session.LastSeenAt,
		})
	}
	return summaries, nil
}

func (s *Service) issueTokens(user models.User, withRefresh bool) (models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	pair := models.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
		User:        models.ProfileOf(user),
	}

	if withRefresh {
		refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.IsAdmin)
		if err != nil {
			return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
		}
		pair.RefreshToken = refresh
	}
	return pair, nil
}
