package domain

import "context"

// Chunk is one fixed-size window of an article, identified by its position.
type Chunk struct {
	Index int
	Text  string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Response is the text returned by the language model.
type Response struct {
	Text string
}

// Answer is the successful outcome of a question over an article.
// Context holds the retrieved chunks that were placed in the prompt.
type Answer struct {
	Text    string
	Context []string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus, so a
// fresh instance is used for every request.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits article text into overlapping windows.
type Chunker interface {
	Chunk(text string) []string
}

// VectorStore holds vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(chunks []Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Clear() error
}

// Generator sends a prompt to a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Response, error)
}

// ArticleFetcher retrieves the cleaned text of an article. An empty string
// means the article is not available.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) string
}
