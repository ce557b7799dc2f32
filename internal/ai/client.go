package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"scubaai/internal/platform/config"
	id "scubaai/pkg/domain"
	"scubaai/pkg/platform/sentinel"
)

// Completion parameters carried over from the previous deployment; tuned for
// conversational answers rather than determinism.
const (
	temperature = 0.7
	maxTokens   = 4096
	topP        = 1
)

const titlePrompt = "Generate a short, descriptive title (max 50 characters) " +
	"for a conversation that starts with the following message. " +
	"Return only the title, nothing else."

// Client talks to an OpenAI-compatible completion endpoint (Groq by default).
type Client struct {
	client *openai.Client
	model  string
}

var _ Completer = (*Client)(nil)

// NewClient builds a provider client from configuration.
func NewClient(cfg config.AI) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is not set")
	}

	providerCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		providerCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(providerCfg),
		model:  cfg.Model,
	}, nil
}

func toProviderMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return out
}

// Complete runs a blocking completion over the full message context.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toProviderMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: empty choices", sentinel.ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// providerStream adapts the go-openai stream to the TokenStream interface,
// skipping empty deltas so callers only see actual text.
type providerStream struct {
	stream *openai.ChatCompletionStream
}

func (s *providerStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *providerStream) Close() error {
	return s.stream.Close()
}

// Stream opens a token stream over the full message context.
func (c *Client) Stream(ctx context.Context, messages []Message) (TokenStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toProviderMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w: %w", sentinel.ErrUnavailable, err)
	}
	return &providerStream{stream: stream}, nil
}

// GenerateTitle asks the model for a short conversation title. The first
// message is clipped so a pasted wall of text does not blow the prompt.
func (c *Client) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	if runes := []rune(firstMessage); len(runes) > 200 {
		firstMessage = string(runes[:200])
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titlePrompt},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
		Temperature: 0.5,
		MaxTokens:   50,
	})
	if err != nil {
		return "", fmt.Errorf("title generation: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("title generation: %w: empty choices", sentinel.ErrUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ListModels enumerates the models the provider currently serves.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w: %w", sentinel.ErrUnavailable, err)
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{
			ID:          m.ID,
			Name:        m.ID,
			Description: "Model: " + m.ID,
		})
	}
	return models, nil
}

// DefaultSystemPrompt is used when the user has no custom instruction.
const DefaultSystemPrompt = "You are ScubaAI, a helpful and knowledgeable assistant. " +
	"Provide accurate, helpful, and engaging responses to user queries."

// SystemMessage builds the leading system turn for a completion context.
func SystemMessage(instruction string) Message {
	if instruction == "" {
		instruction = DefaultSystemPrompt
	}
	return Message{Role: id.RoleSystem, Content: instruction}
}
