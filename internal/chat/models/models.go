// Package models defines the conversation and message types plus the
// request shapes the chat HTTP surface accepts.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "scubaai/pkg/domain"
	dErrors "scubaai/pkg/domain-errors"
)

// DefaultTitle is the placeholder a conversation carries until the first
// user message produces a real one.
const DefaultTitle = "New Conversation"

// MaxTitleLength bounds stored conversation titles, counted in characters.
const MaxTitleLength = 50

// Conversation is one chat thread owned by a single user.
type Conversation struct {
	ID        id.ConversationID `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Message is one turn inside a conversation.
type Message struct {
	ID             id.MessageID      `json:"id"`
	ConversationID id.ConversationID `json:"conversation_id"`
	Role           id.ChatRole       `json:"role"`
	Content        string            `json:"content"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ConversationDetail is a conversation together with its full transcript,
// oldest message first.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// CreateConversationRequest creates a new thread. An empty title yields the
// placeholder; the real title is derived from the first message.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

func (r *CreateConversationRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

// UpdateTitleRequest renames a conversation explicitly.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

func (r *UpdateTitleRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

func (r UpdateTitleRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeBadRequest, "title cannot be empty")
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return dErrors.New(dErrors.CodeBadRequest, "title too long")
	}
	return nil
}

// SendMessageRequest submits a user message for completion. InstructionID
// selects a custom instruction for the system prompt; nil means the user's
// default instruction, or the built-in prompt when none exists.
type SendMessageRequest struct {
	Content       string  `json:"content"`
	InstructionID *string `json:"instruction_id,omitempty"`
}

func (r *SendMessageRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
}

func (r SendMessageRequest) Validate() error {
	if r.Content == "" {
		return dErrors.New(dErrors.CodeBadRequest, "message content cannot be empty")
	}
	return nil
}

// SendMessageResponse carries both sides of a completed exchange.
type SendMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}
