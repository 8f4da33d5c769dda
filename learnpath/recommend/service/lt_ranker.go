package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
)

// pairFeatureCount is the width of the learner/item pair feature vector:
// cosine similarity, dot product and euclidean distance.
const pairFeatureCount = 3

// LogisticScorer implements SuccessScorer with a logistic model over pair
// features. It is the trained success-probability ranker; scores lie in (0, 1).
type LogisticScorer struct {
	dimension int
	mu        sync.RWMutex
	weights   []float64
	bias      float64
}

// LogisticWeights is the persisted form of a trained model
type LogisticWeights struct {
	Dimension int       `json:"dimension"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
}

// LTRTrainingExample is one labelled learner/item outcome
type LTRTrainingExample struct {
	Learner Vector  `json:"learner"`
	Item    Vector  `json:"item"`
	Label   float64 `json:"label"` // 1 = learner completed the node, 0 = dropped out
}

// NewLogisticScorer creates an untrained scorer that leans on cosine
// similarity until Train or LoadWeights replaces the weights.
func NewLogisticScorer(dimension int) *LogisticScorer {
	return &LogisticScorer{
		dimension: dimension,
		weights:   []float64{4, 0, 0},
		bias:      -1,
	}
}

// Score returns the predicted success probability
func (ltr *LogisticScorer) Score(learner, item Vector) (float64, error) {
	if err := checkPair(ltr.dimension, learner, item); err != nil {
		return 0, err
	}
	features := pairFeatures(learner, item)

	ltr.mu.RLock()
	z := floats.Dot(ltr.weights, features) + ltr.bias
	ltr.mu.RUnlock()

	return sigmoid(z), nil
}

// Semantic reports SemanticProbability
func (ltr *LogisticScorer) Semantic() ScoreSemantic {
	return SemanticProbability
}

// Train fits the weights by batch gradient descent on log loss
func (ltr *LogisticScorer) Train(ctx context.Context, examples []LTRTrainingExample, learningRate float64, epochs int) error {
	if len(examples) == 0 {
		return fmt.Errorf("no training examples")
	}
	if learningRate <= 0 || epochs <= 0 {
		return fmt.Errorf("learning rate and epochs must be positive (got %v, %d)", learningRate, epochs)
	}

	features := make([][]float64, len(examples))
	for i, ex := range examples {
		if err := checkPair(ltr.dimension, ex.Learner, ex.Item); err != nil {
			return fmt.Errorf("example %d: %w", i, err)
		}
		if ex.Label < 0 || ex.Label > 1 {
			return fmt.Errorf("example %d: label %v outside [0,1]", i, ex.Label)
		}
		features[i] = pairFeatures(ex.Learner, ex.Item)
	}

	ltr.mu.RLock()
	weights := make([]float64, len(ltr.weights))
	copy(weights, ltr.weights)
	bias := ltr.bias
	ltr.mu.RUnlock()

	n := float64(len(examples))
	grad := make([]float64, pairFeatureCount)
	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range grad {
			grad[i] = 0
		}
		gradBias := 0.0
		for i, f := range features {
			residual := sigmoid(floats.Dot(weights, f)+bias) - examples[i].Label
			floats.AddScaled(grad, residual, f)
			gradBias += residual
		}
		floats.AddScaled(weights, -learningRate/n, grad)
		bias -= learningRate * gradBias / n
	}

	ltr.mu.Lock()
	ltr.weights = weights
	ltr.bias = bias
	ltr.mu.Unlock()

	return nil
}

// Weights returns a copy of the current model
func (ltr *LogisticScorer) Weights() LogisticWeights {
	ltr.mu.RLock()
	defer ltr.mu.RUnlock()

	w := make([]float64, len(ltr.weights))
	copy(w, ltr.weights)
	return LogisticWeights{Dimension: ltr.dimension, Weights: w, Bias: ltr.bias}
}

// SetWeights replaces the model
func (ltr *LogisticScorer) SetWeights(lw LogisticWeights) error {
	if lw.Dimension != ltr.dimension {
		return dimensionError("trained model", ltr.dimension, lw.Dimension)
	}
	if len(lw.Weights) != pairFeatureCount {
		return fmt.Errorf("expected %d feature weights, got %d", pairFeatureCount, len(lw.Weights))
	}

	w := make([]float64, pairFeatureCount)
	copy(w, lw.Weights)

	ltr.mu.Lock()
	ltr.weights = w
	ltr.bias = lw.Bias
	ltr.mu.Unlock()
	return nil
}

// ReadTrainingFile decodes a JSON array of labelled examples
func ReadTrainingFile(path string) ([]LTRTrainingExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training file: %w", err)
	}
	var examples []LTRTrainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to decode training file %s: %w", path, err)
	}
	return examples, nil
}

// LoadWeights reads a model saved by SaveWeights
func (ltr *LogisticScorer) LoadWeights(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ranker weights: %w", err)
	}
	var lw LogisticWeights
	if err := json.Unmarshal(data, &lw); err != nil {
		return fmt.Errorf("failed to decode ranker weights: %w", err)
	}
	return ltr.SetWeights(lw)
}

// SaveWeights writes the model as JSON
func (ltr *LogisticScorer) SaveWeights(path string) error {
	data, err := json.MarshalIndent(ltr.Weights(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ranker weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ranker weights: %w", err)
	}
	return nil
}

func pairFeatures(learner, item Vector) []float64 {
	return []float64{
		cosineSimilarity(learner, item),
		floats.Dot(learner, item),
		euclideanDistance(learner, item),
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
