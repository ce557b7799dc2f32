// Package store declares the persistence contracts for conversations and
// messages. Implementations return sentinel.ErrNotFound for missing rows;
// ownership is enforced in the queries themselves so a foreign conversation
// is indistinguishable from a missing one.
package store

import (
	"context"
	"time"

	"scubaai/internal/chat/models"
	id "scubaai/pkg/domain"
)

// ConversationStore persists conversation rows.
type ConversationStore interface {
	Create(ctx context.Context, conv models.Conversation) error
	// GetOwned loads a conversation only when userID owns it.
	GetOwned(ctx context.Context, convID id.ConversationID, userID id.UserID) (models.Conversation, error)
	// ListByUser returns the user's conversations, most recently updated first.
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Conversation, error)
	UpdateTitle(ctx context.Context, convID id.ConversationID, title string, at time.Time) error
	// Touch bumps updated_at, used when a new exchange lands in the thread.
	Touch(ctx context.Context, convID id.ConversationID, at time.Time) error
	Delete(ctx context.Context, convID id.ConversationID) error
}

// MessageStore persists message rows. Cascade deletion of a conversation's
// messages is the store's concern, not the service's.
type MessageStore interface {
	Create(ctx context.Context, msg models.Message) error
	// ListByConversation returns the transcript oldest first.
	ListByConversation(ctx context.Context, convID id.ConversationID) ([]models.Message, error)
	Count(ctx context.Context, convID id.ConversationID) (int, error)
	Get(ctx context.Context, msgID id.MessageID) (models.Message, error)
	Delete(ctx context.Context, msgID id.MessageID) error
}
