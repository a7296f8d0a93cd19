package chunker

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finqa/internal/logging"
)

// ErrInvalidParams is returned by Split for a size/overlap pair that cannot advance.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// CharacterChunker splits text into fixed-size rune windows with overlap.
type CharacterChunker struct {
	size    int
	overlap int
	log     *zap.Logger
}

// NewCharacterChunker keeps the parameters as given; invalid ones surface when
// splitting so the pipeline can fall back to the whole text.
func NewCharacterChunker(size, overlap int, log *zap.Logger) *CharacterChunker {
	return &CharacterChunker{size: size, overlap: overlap, log: logging.OrNop(log).Named("chunker")}
}

// Chunk splits text, returning the whole text as a single chunk when splitting fails.
func (c *CharacterChunker) Chunk(text string) []string {
	chunks, err := c.Split(text)
	if err != nil {
		c.log.Warn("splitting article failed, using whole text", zap.Error(err))
		return []string{text}
	}
	return chunks
}

// Split returns consecutive windows of at most size runes. Each window after
// the first starts overlap runes before the end of the previous one.
func (c *CharacterChunker) Split(text string) ([]string, error) {
	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidParams, c.size, c.overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
