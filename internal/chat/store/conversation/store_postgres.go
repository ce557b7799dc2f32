// Package conversation provides ConversationStore implementations.
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// PostgresStore persists conversations in the conversations table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, conv models.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		conv.ID.String(), conv.UserID.String(), conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOwned(ctx context.Context, convID id.ConversationID, userID id.UserID) (models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`,
		convID.String(), userID.String(),
	)
	return scanConversation(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *PostgresStore) UpdateTitle(ctx context.Context, convID id.ConversationID, title string, at time.Time) error {
	return s.exec(ctx, `UPDATE conversations SET title = $2, updated_at = $3 WHERE id = $1`,
		"update conversation title", convID.String(), title, at)
}

func (s *PostgresStore) Touch(ctx context.Context, convID id.ConversationID, at time.Time) error {
	return s.exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		"touch conversation", convID.String(), at)
}

func (s *PostgresStore) Delete(ctx context.Context, convID id.ConversationID) error {
	// Messages go with the conversation via ON DELETE CASCADE.
	return s.exec(ctx, `DELETE FROM conversations WHERE id = $1`,
		"delete conversation", convID.String())
}

func (s *PostgresStore) exec(ctx context.Context, query, op string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (models.Conversation, error) {
	var (
		conv    models.Conversation
		rawID   string
		rawUser string
	)
	err := row.Scan(&rawID, &rawUser, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("scan conversation: %w", err)
	}
	convID, err := id.ParseConversationID(rawID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("parse conversation id: %w", err)
	}
	ownerID, err := id.ParseUserID(rawUser)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("parse conversation user id: %w", err)
	}
	conv.ID = convID
	conv.UserID = ownerID
	return conv, nil
}
