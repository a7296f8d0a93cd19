package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient builds an SDK client for the embeddings endpoint. The API key is
// optional because local OpenAI-compatible servers (Ollama) accept none.
func NewClient(cfg Config) oai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(2),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
	}
	return oai.NewClient(opts...)
}

// Embedder embeds text through an OpenAI-compatible /embeddings endpoint.
// Prepare sends the whole corpus in one request and keeps the vectors, so an
// instance is scoped to one article.
type Embedder struct {
	client    oai.Client
	model     string
	dimension int
	cache     map[string][]float64
}

// NewEmbedder creates an embedder sharing the given client.
func NewEmbedder(client oai.Client, model string) *Embedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Embedder{client: client, model: model, cache: make(map[string][]float64)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "openai:" + e.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Prepare embeds the corpus in a single batch.
func (e *Embedder) Prepare(ctx context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for embedding")
	}
	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: corpus},
		Model: oai.EmbeddingModel(e.model),
	})
	if err != nil {
		return fmt.Errorf("openai embeddings failed: %w", err)
	}
	if len(resp.Data) != len(corpus) {
		return fmt.Errorf("openai embeddings returned %d vectors for %d inputs", len(resp.Data), len(corpus))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(corpus) {
			return fmt.Errorf("openai embeddings returned out of range index %d", d.Index)
		}
		if err := e.remember(corpus[d.Index], d.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// Embed returns an embedding vector for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := e.cache[text]; ok {
		return v, nil
	}
	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Input: oai.EmbeddingNewParamsInputUnion{OfString: oai.String(text)},
		Model: oai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	v := resp.Data[0].Embedding
	if e.dimension == 0 {
		e.dimension = len(v)
	}
	return v, nil
}

func (e *Embedder) remember(text string, v []float64) error {
	if len(v) == 0 {
		return errors.New("no embedding returned")
	}
	if e.dimension == 0 {
		e.dimension = len(v)
	} else if len(v) != e.dimension {
		return fmt.Errorf("embedding dimension mismatch: %d != %d", len(v), e.dimension)
	}
	e.cache[text] = v
	return nil
}
