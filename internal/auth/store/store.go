// Package store defines the persistence interfaces the auth service consumes.
// Postgres implementations back production; memory implementations back
// tests and databaseless development.
package store

import (
	"context"
	"time"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
)

// UserStore persists accounts. Lookups return sentinel.ErrNotFound when the
// user does not exist; Create returns sentinel.ErrConflict on a duplicate
// username or email.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, userID id.UserID) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	List(ctx context.Context) ([]models.User, error)
}

// SessionStore records logins per user.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Session, error)
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error
	DeleteByUser(ctx context.Context, userID id.UserID) error
}

// RevocationList tracks revoked token JTIs until their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
