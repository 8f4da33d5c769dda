package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingSet() []LTRTrainingExample {
	var examples []LTRTrainingExample
	for i := 0; i < 4; i++ {
		learner := unit(testDim, i)
		// Completed: the node points the learner's way
		examples = append(examples, LTRTrainingExample{Learner: learner, Item: unit(testDim, i), Label: 1})
		// Dropped: orthogonal node
		examples = append(examples, LTRTrainingExample{Learner: learner, Item: unit(testDim, i+4), Label: 0})
	}
	return examples
}

// TestLogisticScorer_Score tests the untrained probability range
func TestLogisticScorer_Score(t *testing.T) {
	ltr := NewLogisticScorer(testDim)

	aligned, err := ltr.Score(unit(testDim, 0), unit(testDim, 0))
	require.NoError(t, err)
	orthogonal, err := ltr.Score(unit(testDim, 0), unit(testDim, 1))
	require.NoError(t, err)

	assert.Greater(t, aligned, orthogonal)
	for _, s := range []float64{aligned, orthogonal} {
		assert.Greater(t, s, 0.0)
		assert.Less(t, s, 1.0)
	}
	assert.Equal(t, SemanticProbability, ltr.Semantic())

	_, err = ltr.Score(make(Vector, 10), make(Vector, testDim))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

// TestLogisticScorer_Train tests that training separates the labels
func TestLogisticScorer_Train(t *testing.T) {
	ltr := NewLogisticScorer(testDim)

	before, err := ltr.Score(unit(testDim, 0), unit(testDim, 4))
	require.NoError(t, err)

	require.NoError(t, ltr.Train(context.Background(), trainingSet(), 0.5, 300))

	positive, err := ltr.Score(unit(testDim, 0), unit(testDim, 0))
	require.NoError(t, err)
	negative, err := ltr.Score(unit(testDim, 0), unit(testDim, 4))
	require.NoError(t, err)

	assert.Greater(t, positive, 0.5)
	assert.Less(t, negative, 0.5)
	assert.Less(t, negative, before)
}

// TestLogisticScorer_TrainErrors tests training input validation
func TestLogisticScorer_TrainErrors(t *testing.T) {
	ltr := NewLogisticScorer(testDim)
	ctx := context.Background()

	assert.Error(t, ltr.Train(ctx, nil, 0.1, 10))
	assert.Error(t, ltr.Train(ctx, trainingSet(), 0, 10))
	assert.Error(t, ltr.Train(ctx, trainingSet(), 0.1, 0))

	bad := []LTRTrainingExample{{Learner: unit(testDim, 0), Item: unit(testDim, 0), Label: 2}}
	assert.Error(t, ltr.Train(ctx, bad, 0.1, 10))

	short := []LTRTrainingExample{{Learner: make(Vector, 3), Item: unit(testDim, 0), Label: 1}}
	assert.ErrorIs(t, ltr.Train(ctx, short, 0.1, 10), ErrDimensionMismatch)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, ltr.Train(cancelled, trainingSet(), 0.1, 10), context.Canceled)
}

// TestLogisticScorer_SaveLoad tests weight persistence
func TestLogisticScorer_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")

	trained := NewLogisticScorer(testDim)
	require.NoError(t, trained.Train(context.Background(), trainingSet(), 0.5, 50))
	require.NoError(t, trained.SaveWeights(path))

	loaded := NewLogisticScorer(testDim)
	require.NoError(t, loaded.LoadWeights(path))
	assert.Equal(t, trained.Weights(), loaded.Weights())

	wrongDim := NewLogisticScorer(testDim * 2)
	assert.ErrorIs(t, wrongDim.LoadWeights(path), ErrDimensionMismatch)

	assert.Error(t, loaded.SetWeights(LogisticWeights{Dimension: testDim, Weights: []float64{1}}))
	assert.Error(t, loaded.LoadWeights(filepath.Join(t.TempDir(), "missing.json")))
}
