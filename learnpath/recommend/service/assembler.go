package service

import (
	"fmt"
	"sort"
)

// ReasonTemplate is the fixed explanation attached to every recommendation
const ReasonTemplate = "Matches your %s gap"

// PathAssembler sorts, truncates and annotates scored candidates
type PathAssembler struct{}

// NewPathAssembler creates a new assembler
func NewPathAssembler() *PathAssembler {
	return &PathAssembler{}
}

// Assemble returns the top min(k, len(scored)) recommendations by score,
// descending. Exact ties keep their input order. The input is not modified.
func (pa *PathAssembler) Assemble(scored []ScoredCandidate, k int) []RankedRecommendation {
	if k < 0 {
		k = 0
	}

	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].Score > scored[order[b]].Score
	})

	if k > len(order) {
		k = len(order)
	}

	out := make([]RankedRecommendation, k)
	for i := 0; i < k; i++ {
		c := scored[order[i]]
		out[i] = RankedRecommendation{
			NodeType:      nodeType(c.Node.Metadata),
			NodeID:        c.Node.ID,
			Reason:        fmt.Sprintf(ReasonTemplate, c.Node.PrimarySkill),
			PriorityScore: c.Score,
			Explored:      c.Explored,
		}
	}
	return out
}

func nodeType(meta map[string]any) string {
	if t, ok := meta[MetaNodeType].(string); ok && t != "" {
		return t
	}
	return DefaultNodeType
}
