package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/generation"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("DOCQA_TEST_KEY", "sk-test")
	g, err := NewGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	return g
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	})
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	t.Setenv("DOCQA_MISSING_KEY", "")
	_, err := NewGenerator(Config{APIKeyEnv: "DOCQA_MISSING_KEY"})
	require.Error(t, err)
}

func TestGenerator_Generate(t *testing.T) {
	var req chatRequest
	var path string
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeChat(w, "  Paris.  ")
	})

	answer, err := g.Generate(context.Background(), "What is the capital of France?", []string{"Paris is the capital of France."})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	assert.Equal(t, "openai:gpt-4o-mini", g.Name())

	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.InDelta(t, generation.DefaultTemperature, req.Temperature, 1e-6)
	assert.Equal(t, generation.DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, generation.NotEnoughInformation)
	assert.Contains(t, req.Messages[1].Content, "Paris is the capital of France.")
	assert.Contains(t, req.Messages[1].Content, "What is the capital of France?")
}

func TestGenerator_ServerError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := g.Generate(context.Background(), "q", []string{"c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGenerator_EmptyAnswer(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, "   ")
	})

	_, err := g.Generate(context.Background(), "q", []string{"c"})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
