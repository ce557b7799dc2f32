package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scubaai/internal/platform/config"
	id "scubaai/pkg/domain"
)

// fakeProvider emulates the slice of the OpenAI-compatible API the client
// touches: blocking completions, streamed completions, and model listing.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.NotEmpty(t, req.Messages)

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, chunk := range []string{"Hello", ", ", "diver!"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
				flusher.Flush()
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Blocking answer"}}]}`)
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"llama3-8b-8192","object":"model"},{"id":"llama3-70b-8192","object":"model"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := fakeProvider(t)
	client, err := NewClient(config.AI{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "llama3-8b-8192",
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.AI{})
	require.Error(t, err)
}

func TestComplete(t *testing.T) {
	client := newTestClient(t)

	got, err := client.Complete(t.Context(), []Message{
		SystemMessage(""),
		{Role: id.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Blocking answer", got)
}

func TestStreamDeliversChunksThenEOF(t *testing.T) {
	client := newTestClient(t)

	stream, err := client.Stream(t.Context(), []Message{{Role: id.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	defer stream.Close()

	var full string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		full += chunk
	}
	assert.Equal(t, "Hello, diver!", full)
}

func TestGenerateTitle(t *testing.T) {
	client := newTestClient(t)

	title, err := client.GenerateTitle(t.Context(), "How deep can recreational divers go?")
	require.NoError(t, err)
	assert.Equal(t, "Blocking answer", title)
}

func TestListModels(t *testing.T) {
	client := newTestClient(t)

	models, err := client.ListModels(t.Context())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3-8b-8192", models[0].ID)
	assert.Equal(t, "Model: llama3-70b-8192", models[1].Description)
}

func TestSystemMessageFallsBackToDefault(t *testing.T) {
	msg := SystemMessage("")
	assert.Equal(t, id.RoleSystem, msg.Role)
	assert.Equal(t, DefaultSystemPrompt, msg.Content)

	custom := SystemMessage("Answer like a pirate.")
	assert.Equal(t, "Answer like a pirate.", custom.Content)
}
