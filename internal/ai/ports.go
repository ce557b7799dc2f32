// Package ai wraps the upstream OpenAI-compatible completion provider behind
// a narrow interface so the chat service never sees provider types.
package ai

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Completer,TokenStream

import (
	"context"

	id "scubaai/pkg/domain"
)

// Message is the provider-facing shape of one chat turn.
type Message struct {
	Role    id.ChatRole
	Content string
}

// Model describes one model the provider can serve.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TokenStream yields assistant text incrementally. Recv returns io.EOF when
// the upstream stream ends cleanly; Close is safe to call more than once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Completer is the contract the chat service depends on.
type Completer interface {
	// Complete runs a blocking completion over the full message context.
	Complete(ctx context.Context, messages []Message) (string, error)
	// Stream opens a token stream over the full message context.
	Stream(ctx context.Context, messages []Message) (TokenStream, error)
	// GenerateTitle asks the model for a short conversation title.
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
	// ListModels enumerates the models the provider currently serves.
	ListModels(ctx context.Context) ([]Model, error)
}
