package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCosineScorer_Score tests the similarity range endpoints
func TestCosineScorer_Score(t *testing.T) {
	sc := NewCosineScorer(4)

	same, err := sc.Score(Vector{1, 2, 0, 0}, Vector{2, 4, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-12)

	opposite, err := sc.Score(Vector{1, 0, 0, 0}, Vector{-3, 0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite, 1e-12)

	orthogonal, err := sc.Score(Vector{1, 0, 0, 0}, Vector{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, orthogonal, 1e-12)

	zero, err := sc.Score(Vector{0, 0, 0, 0}, Vector{0, 1, 0, 0})
	require.NoError(t, err)
	assert.Zero(t, zero)

	assert.Equal(t, SemanticSimilarity, sc.Semantic())
}

// TestCosineScorer_DimensionMismatch tests mismatched vector lengths
func TestCosineScorer_DimensionMismatch(t *testing.T) {
	sc := NewCosineScorer(768)

	_, err := sc.Score(make(Vector, 10), make(Vector, 768))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = sc.Score(make(Vector, 768), make(Vector, 10))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

// TestMarketBoost_Apply tests demand reweighting
func TestMarketBoost_Apply(t *testing.T) {
	mb := NewMarketBoost(0.5)

	node := func(demand any) ContentNode {
		return ContentNode{ID: "n", Metadata: map[string]any{MetaMarketDemand: demand}}
	}

	assert.InDelta(t, 0.6, mb.Apply(0.5, node(0.4)), 1e-12)
	assert.InDelta(t, 0.7, mb.Apply(0.5, node(80)), 1e-12)
	assert.InDelta(t, 0.5, mb.Apply(0.5, node(float32(0))), 1e-12)
	assert.Equal(t, 0.5, mb.Apply(0.5, node("high")))
	assert.Equal(t, 0.5, mb.Apply(0.5, node(-1.0)))
	assert.Equal(t, 0.5, mb.Apply(0.5, ContentNode{ID: "bare"}))

	var disabled *MarketBoost
	assert.Equal(t, 0.5, disabled.Apply(0.5, node(1.0)))
	assert.Equal(t, 0.5, NewMarketBoost(0).Apply(0.5, node(1.0)))
}

// TestScoreSemantic_Range tests declared score bounds
func TestScoreSemantic_Range(t *testing.T) {
	lo, hi := SemanticSimilarity.Range()
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = SemanticProbability.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}
