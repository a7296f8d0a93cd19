package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"The central bank raised interest rates by 25 basis points.",
	"Crude oil prices fell as supply concerns eased.",
	"The rupee weakened against the dollar in 2024.",
}

func TestEmbed_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "rates")
	assert.Error(t, err)
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(context.Background(), nil))
	assert.Error(t, NewEmbedder().Prepare(context.Background(), []string{"the and of"}))
}

func TestEmbed_NormalisedAndDimension(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(context.Background(), corpus))
	assert.Greater(t, e.Dimension(), 0)

	vec, err := e.Embed(context.Background(), corpus[0])
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbed_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(context.Background(), corpus))

	vec, err := e.Embed(context.Background(), "quantum entanglement")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(context.Background(), corpus))

	q, _ := e.Embed(context.Background(), "Why did oil prices fall?")
	oil, _ := e.Embed(context.Background(), corpus[1])
	bank, _ := e.Embed(context.Background(), corpus[0])

	assert.Greater(t, dot(q, oil), dot(q, bank))
}

func TestTokenize_KeepsNumbersDropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"rupee", "fell", "2024"}, Tokenize("The rupee fell in 2024"))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
