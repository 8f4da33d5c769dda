package service

import (
	"context"
)

// Vector is a dense embedding. Learner and content vectors share one
// configured dimension.
type Vector []float64

// Encoder maps a learner profile to a dense vector
type Encoder interface {
	Encode(ctx context.Context, profile LearnerProfile) (Vector, error)
}

// RoleVectorLookup resolves aspiration roles to precomputed role vectors
type RoleVectorLookup interface {
	Lookup(ctx context.Context, roleID string) (Vector, error)
}

// SimilaritySearch is the nearest-neighbour collaborator behind the retriever
type SimilaritySearch interface {
	Search(ctx context.Context, query Vector, topK int) ([]ContentNode, error)
}

// Retriever narrows the catalog to a bounded candidate set
type Retriever interface {
	Retrieve(ctx context.Context, query Vector, topK int) ([]ContentNode, error)
}

// SuccessScorer predicts how likely a learner succeeds with an item.
// Implementations declare their score range through Semantic.
type SuccessScorer interface {
	Score(learner, item Vector) (float64, error)
	Semantic() ScoreSemantic
}

// RandomSource supplies uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Tracer emits spans around pipeline stages.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}

// ScoreSemantic declares what a scorer's output means and its nominal range
type ScoreSemantic string

const (
	// SemanticSimilarity scores lie in [-1, 1]
	SemanticSimilarity ScoreSemantic = "similarity"
	// SemanticProbability scores lie in (0, 1)
	SemanticProbability ScoreSemantic = "probability"
)

// Range returns the nominal bounds before market boost and exploration.
func (s ScoreSemantic) Range() (lo, hi float64) {
	switch s {
	case SemanticProbability:
		return 0, 1
	default:
		return -1, 1
	}
}

// Metadata keys understood by the ranker and assembler
const (
	MetaMarketDemand = "market_demand"
	MetaNodeType     = "node_type"
	MetaTitle        = "title"
)

// DefaultNodeType tags recommendations whose node carries no type
const DefaultNodeType = "course"

// ContentNode is a catalog item returned by retrieval
type ContentNode struct {
	ID           string         `json:"id"`
	PrimarySkill string         `json:"primary_skill"`
	Vector       Vector         `json:"vector"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ScoredCandidate is a content node with its ranking score
type ScoredCandidate struct {
	Node     ContentNode
	Score    float64
	Explored bool
}

// RankedRecommendation is one entry of the final payload
type RankedRecommendation struct {
	NodeType      string  `json:"node_type"`
	NodeID        string  `json:"node_id"`
	Reason        string  `json:"reason"`
	PriorityScore float64 `json:"priority_score"`
	Explored      bool    `json:"explored,omitempty"`
}
