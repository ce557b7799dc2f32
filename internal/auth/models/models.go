// Package models holds the account and session types plus the request
// validation applied at the trust boundary.
package models

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

// User is the primary identity. PasswordHash never leaves the auth package.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session records one login with the device it came from.
type Session struct {
	ID         id.SessionID
	UserID     id.UserID
	DeviceName string
	ClientIP   string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Profile is the client-facing view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileOf projects a stored user into its client-facing view.
func ProfileOf(u User) Profile {
	return Profile{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// SessionSummary is the client-facing view of a session.
type SessionSummary struct {
	SessionID  string    `json:"session_id"`
	Device     string    `json:"device"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	User         Profile `json:"user"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RegisterRequest carries a new account application.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r RegisterRequest) Validate() error {
	if len(r.Username) < 3 {
		return dErrors.New(dErrors.CodeBadRequest, "username must be at least 3 characters")
	}
	if !usernamePattern.MatchString(r.Username) {
		return dErrors.New(dErrors.CodeBadRequest, "username may only contain letters, digits, underscores and hyphens")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	if len(r.Password) < 6 {
		return dErrors.New(dErrors.CodeBadRequest, "password must be at least 6 characters")
	}
	return nil
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username and password are required")
	}
	return nil
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	if r.RefreshToken == "" {
		return dErrors.New(dErrors.CodeBadRequest, "refresh_token is required")
	}
	return nil
}

// UpdateProfileRequest updates the email on the caller's account.
type UpdateProfileRequest struct {
	Email string `json:"email"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r UpdateProfileRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	return nil
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return dErrors.New(dErrors.CodeBadRequest, "current_password is required")
	}
	if len(r.NewPassword) < 6 {
		return dErrors.New(dErrors.CodeBadRequest, "new password must be at least 6 characters")
	}
	return nil
}

// UserStats is the admin view of one account's activity.
type UserStats struct {
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	Conversations int        `json:"conversations"`
	Messages      int        `json:"messages"`
	Instructions  int        `json:"instructions"`
	LastActive    *time.Time `json:"last_active,omitempty"`
}
