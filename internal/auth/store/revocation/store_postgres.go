package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresList persists revoked JTIs in the token_revocations table. Used
// when Redis is not configured but durability across restarts matters.
type PostgresList struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresList.
type PostgresOption func(*PostgresList)

// WithPostgresClock overrides the time source, for tests.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(l *PostgresList) {
		l.clock = clock
	}
}

func NewPostgresList(db *sql.DB, opts ...PostgresOption) *PostgresList {
	l := &PostgresList{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *PostgresList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		jti, l.clock().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *PostgresList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx,
		`SELECT expires_at FROM token_revocations WHERE jti = $1`, jti,
	).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return l.clock().Before(expiresAt), nil
}

// Purge deletes entries past their expiry. Run it periodically; IsRevoked is
// correct without it.
func (l *PostgresList) Purge(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM token_revocations WHERE expires_at < $1`, l.clock())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
