package service

import (
	"math"
)

// CosineScorer implements SuccessScorer with cosine similarity. It is the
// default ranker; scores lie in [-1, 1].
type CosineScorer struct {
	dimension int
}

// NewCosineScorer creates a new cosine scorer
func NewCosineScorer(dimension int) *CosineScorer {
	return &CosineScorer{dimension: dimension}
}

// Score returns the cosine similarity of the learner and item vectors
func (sc *CosineScorer) Score(learner, item Vector) (float64, error) {
	if err := checkPair(sc.dimension, learner, item); err != nil {
		return 0, err
	}
	return cosineSimilarity(learner, item), nil
}

// Semantic reports SemanticSimilarity
func (sc *CosineScorer) Semantic() ScoreSemantic {
	return SemanticSimilarity
}

func checkPair(dimension int, learner, item Vector) error {
	if len(learner) != dimension {
		return dimensionError("learner vector", dimension, len(learner))
	}
	if len(item) != dimension {
		return dimensionError("item vector", dimension, len(item))
	}
	return nil
}

// MarketBoost reweights scores by the node's job-market demand signal
type MarketBoost struct {
	weight float64
}

// NewMarketBoost creates a booster. A zero weight disables it.
func NewMarketBoost(weight float64) *MarketBoost {
	return &MarketBoost{weight: weight}
}

// Apply multiplies score by 1 + weight*demand. Nodes without a usable
// market_demand value in [0,1] pass through unchanged.
func (mb *MarketBoost) Apply(score float64, node ContentNode) float64 {
	if mb == nil || mb.weight <= 0 {
		return score
	}
	demand, ok := marketDemand(node.Metadata)
	if !ok {
		return score
	}
	return score * (1 + mb.weight*demand)
}

func marketDemand(meta map[string]any) (float64, bool) {
	raw, ok := meta[MetaMarketDemand]
	if !ok {
		return 0, false
	}

	var demand float64
	switch v := raw.(type) {
	case float64:
		demand = v
	case float32:
		demand = float64(v)
	case int:
		demand = float64(v)
	case int64:
		demand = float64(v)
	default:
		return 0, false
	}

	if math.IsNaN(demand) || demand < 0 {
		return 0, false
	}
	// Market feeds publish 0-100; fold onto [0,1]
	if demand > 1 {
		demand = NormalizeProficiency(demand)
	}
	return demand, true
}
