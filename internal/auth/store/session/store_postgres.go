package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scubaai/internal/auth/models"
	id "scubaai/pkg/domain"
)

// PostgresStore persists sessions in the sessions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, device_name, client_ip, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID.String(), session.UserID.String(), session.DeviceName,
		session.ClientIP, session.CreatedAt, session.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, device_name, client_ip, created_at, last_seen_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY last_seen_at DESC`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var (
			session models.Session
			rawID   string
			rawUser string
		)
		if err := rows.Scan(&rawID, &rawUser, &session.DeviceName, &session.ClientIP,
			&session.CreatedAt, &session.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessionID, err := id.ParseSessionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		ownerID, err := id.ParseUserID(rawUser)
		if err != nil {
			return nil, fmt.Errorf("parse session user id: %w", err)
		}
		session.ID = sessionID
		session.UserID = ownerID
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`,
		sessionID.String(), at,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
