package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"scubaai/internal/audit"
	id "scubaai/pkg/domain"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var userID any
	if !event.UserID.IsNil() {
		userID = event.UserID.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, user_id, action, subject, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Timestamp, userID, event.Action, event.Subject, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, user_id, action, subject, detail
		FROM audit_events
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT $2`,
		userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events by user: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, user_id, action, subject, detail
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event  audit.Event
			userID sql.NullString
		)
		if err := rows.Scan(&event.Timestamp, &userID, &event.Action, &event.Subject, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if userID.Valid {
			parsed, err := uuid.Parse(userID.String)
			if err != nil {
				return nil, fmt.Errorf("parse audit user id: %w", err)
			}
			event.UserID = id.UserID(parsed)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
