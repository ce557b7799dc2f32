// Package message provides MessageStore implementations.
package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// PostgresStore persists messages in the messages table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, msg models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID.String(), msg.ConversationID.String(), msg.Role.String(), msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByConversation(ctx context.Context, convID id.ConversationID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`,
		convID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, convID id.ConversationID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`,
		convID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Get(ctx context.Context, msgID id.MessageID) (models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE id = $1`,
		msgID.String(),
	)
	return scanMessage(row)
}

func (s *PostgresStore) Delete(ctx context.Context, msgID id.MessageID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = $1`, msgID.String())
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (models.Message, error) {
	var (
		msg     models.Message
		rawID   string
		rawConv string
		rawRole string
	)
	err := row.Scan(&rawID, &rawConv, &rawRole, &msg.Content, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("scan message: %w", err)
	}
	msgID, err := id.ParseMessageID(rawID)
	if err != nil {
		return models.Message{}, fmt.Errorf("parse message id: %w", err)
	}
	convID, err := id.ParseConversationID(rawConv)
	if err != nil {
		return models.Message{}, fmt.Errorf("parse message conversation id: %w", err)
	}
	role, err := id.ParseChatRole(rawRole)
	if err != nil {
		return models.Message{}, fmt.Errorf("parse message role: %w", err)
	}
	msg.ID = msgID
	msg.ConversationID = convID
	msg.Role = role
	return msg, nil
}
