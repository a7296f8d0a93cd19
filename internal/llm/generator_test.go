package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finqa/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := New(Config{
		BaseURL:     srv.URL + "/",
		APIKey:      "test-key",
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.6,
	}, nil)
	require.NoError(t, err)
	return g
}

func TestGenerate_ReturnsContent(t *testing.T) {
	requests := make(chan chatRequest, 1)
	auth := make(chan string, 1)
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth <- r.Header.Get("Authorization")
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Profit rose 12 percent."}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	resp, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Profit rose 12 percent.", resp.Text)

	req := <-requests
	assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
	assert.InDelta(t, 0.6, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "prompt text", req.Messages[0].Content)
	assert.Equal(t, "Bearer test-key", <-auth)
}

func TestGenerate_AuthFailureIsGenerateError(t *testing.T) {
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API Key", "type": "invalid_request_error"}}`))
	})

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, domain.KindGenerate, domain.KindOf(err))
}

func TestGenerate_NoChoices(t *testing.T) {
	g := newGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	})

	_, err := g.Generate(context.Background(), "prompt")
	assert.Equal(t, domain.KindGenerate, domain.KindOf(err))
}

func TestNew_RequiresKeyAndModel(t *testing.T) {
	_, err := New(Config{Model: "m"}, nil)
	assert.Equal(t, domain.KindConfig, domain.KindOf(err))

	_, err = New(Config{APIKey: "k"}, nil)
	assert.Equal(t, domain.KindConfig, domain.KindOf(err))
}
