package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catering-planner/internal/core/ai/provider"
	"catering-planner/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenRouterConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Model:     "test/model",
		MaxTokens: 512,
		Timeout:   5 * time.Second,
	})
}

func TestGenerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test/model", body.Model)
		assert.Equal(t, 512, body.MaxTokens)
		assert.Len(t, body.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":" scaled "}}],"usage":{"total_tokens":42}}`))
	})

	resp, err := client.Generate(context.Background(), provider.UserPrompt("", "scale this"))
	require.NoError(t, err)
	assert.Equal(t, "scaled", resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
}

func TestGenerateErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := client.Generate(context.Background(), provider.UserPrompt("", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerateEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Generate(context.Background(), provider.UserPrompt("", "x"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	c := NewClient(config.OpenRouterConfig{Model: "m"})
	assert.Equal(t, "m", c.GetModel())
	assert.Equal(t, defaultTimeout, c.GetTimeout())
}
