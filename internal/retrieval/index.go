package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"finqa/internal/domain"
	"finqa/internal/embedding/tfidf"
	"finqa/internal/logging"
	"finqa/internal/vectorstore/memory"
)

// DefaultTopK is used when Retrieve is called with k <= 0.
const DefaultTopK = 3

// EmbedderFactory returns a fresh embedder for one request.
type EmbedderFactory func() domain.Embedder

// StoreFactory returns an empty vector store for one request.
type StoreFactory func() domain.VectorStore

// Builder creates per-request indexes over article chunks.
type Builder struct {
	newEmbedder EmbedderFactory
	newStore    StoreFactory
	log         *zap.Logger
}

// NewBuilder returns a builder. Nil factories default to TF-IDF and the
// in-memory store.
func NewBuilder(newEmbedder EmbedderFactory, newStore StoreFactory, log *zap.Logger) *Builder {
	if newEmbedder == nil {
		newEmbedder = func() domain.Embedder { return tfidf.NewEmbedder() }
	}
	if newStore == nil {
		newStore = func() domain.VectorStore { return memory.NewStorage() }
	}
	return &Builder{newEmbedder: newEmbedder, newStore: newStore, log: logging.OrNop(log).Named("retrieval")}
}

// Index is the searchable form of one article. It is never shared between requests.
type Index struct {
	embedder domain.Embedder
	store    domain.VectorStore
	chunks   []domain.Chunk
	log      *zap.Logger
}

// Build embeds every chunk and loads it into a fresh store. Any failure is
// returned as a KindIndex error.
func (b *Builder) Build(ctx context.Context, texts []string) (*Index, error) {
	idx, err := b.build(ctx, texts)
	if err != nil {
		return nil, domain.NewError(domain.KindIndex, "failed to create embeddings/index", err)
	}
	return idx, nil
}

func (b *Builder) build(ctx context.Context, texts []string) (*Index, error) {
	if len(texts) == 0 {
		return nil, errors.New("no chunks to index")
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{Index: i, Text: t}
	}

	emb := b.newEmbedder()
	if err := emb.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare %s embedder: %w", emb.Name(), err)
	}
	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := emb.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}

	store := b.newStore()
	if err := store.Init(emb.Dimension()); err != nil {
		return nil, err
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, err
	}

	b.log.Debug("index built",
		zap.String("embedder", emb.Name()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", emb.Dimension()))
	return &Index{embedder: emb, store: store, chunks: chunks, log: b.log}, nil
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Retrieve returns the text of at most k chunks most similar to query, best
// first. Failures are logged and yield an empty slice.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) []string {
	if k <= 0 {
		k = DefaultTopK
	}
	results, err := idx.search(ctx, query, k)
	if err != nil {
		idx.log.Warn("retrieving chunks failed", zap.Error(err))
		return []string{}
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Chunk.Text)
	}
	return out
}

func (idx *Index) search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	// Detect zero vector (no known terms)
	if isZero(vec) {
		return idx.lexicalSearch(query, k), nil
	}
	res, err := idx.store.Search(vec, k)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return idx.lexicalSearch(query, k), nil
	}
	return res, nil
}

// lexicalSearch ranks chunks by the Ochiai coefficient of query and chunk terms.
func (idx *Index) lexicalSearch(query string, k int) []domain.SearchResult {
	qset := toTokenSet(query)
	results := make([]domain.SearchResult, len(idx.chunks))
	for i, ch := range idx.chunks {
		results[i] = domain.SearchResult{Chunk: ch, Score: overlapOchiai(qset, ch.Text)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func toTokenSet(s string) map[string]struct{} {
	tokens := tfidf.Tokenize(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai computes |A∩B| / sqrt(|A||B|) over distinct terms.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
