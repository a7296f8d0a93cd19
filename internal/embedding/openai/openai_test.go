package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRequest struct {
	Input json.RawMessage `json:"input"`
	Model string          `json:"model"`
}

// fakeEmbeddings answers every input with a 3-d vector whose first component
// is the input's length.
func fakeEmbeddings(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var inputs []string
		if err := json.Unmarshal(req.Input, &inputs); err != nil {
			var single string
			if err := json.Unmarshal(req.Input, &single); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			inputs = []string{single}
		}
		data := make([]map[string]any, len(inputs))
		for i, in := range inputs {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(in)), 1, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_PrepareBatchesAndCaches(t *testing.T) {
	var calls int32
	srv := fakeEmbeddings(t, &calls)
	e := NewEmbedder(NewClient(Config{BaseURL: srv.URL + "/"}), "test-embed")

	require.NoError(t, e.Prepare(context.Background(), []string{"ab", "abcd"}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, e.Dimension())

	v, err := e.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 0}, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "cached chunk must not be re-embedded")

	q, err := e.Embed(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 1, 0}, q)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewEmbedder(NewClient(Config{BaseURL: srv.URL + "/"}), "test-embed")
	assert.Error(t, e.Prepare(context.Background(), []string{"x"}))
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestEmbedder_EmptyCorpus(t *testing.T) {
	e := NewEmbedder(NewClient(Config{BaseURL: "http://127.0.0.1:1/"}), "")
	assert.Error(t, e.Prepare(context.Background(), nil))
	assert.Equal(t, "openai:text-embedding-3-small", e.Name())
}
