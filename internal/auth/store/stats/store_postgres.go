// Package stats counts a user's content across the chat and instruction
// tables for the admin stats view.
package stats

import (
	"context"
	"database/sql"
	"fmt"

	id "scubaai/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CountsForUser(ctx context.Context, userID id.UserID) (int, int, int, error) {
	var conversations, messages, instructions int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM conversations WHERE user_id = $1),
			(SELECT count(*) FROM messages m
			   JOIN conversations c ON c.id = m.conversation_id
			  WHERE c.user_id = $1),
			(SELECT count(*) FROM custom_instructions WHERE user_id = $1)`,
		userID.String(),
	).Scan(&conversations, &messages, &instructions)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count user activity: %w", err)
	}
	return conversations, messages, instructions, nil
}
