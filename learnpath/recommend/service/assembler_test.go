package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scoredFixture() []ScoredCandidate {
	return []ScoredCandidate{
		{Node: ContentNode{ID: "sql-101", PrimarySkill: "sql"}, Score: 0.4},
		{Node: ContentNode{ID: "py-201", PrimarySkill: "python", Metadata: map[string]any{MetaNodeType: "project"}}, Score: 0.9},
		{Node: ContentNode{ID: "stats-110", PrimarySkill: "statistics"}, Score: 0.7, Explored: true},
		{Node: ContentNode{ID: "git-100", PrimarySkill: "git"}, Score: -0.2},
	}
}

// TestPathAssembler_Assemble tests ordering and annotation
func TestPathAssembler_Assemble(t *testing.T) {
	recs := NewPathAssembler().Assemble(scoredFixture(), 3)

	assert.Len(t, recs, 3)
	assert.Equal(t, RankedRecommendation{
		NodeType:      "project",
		NodeID:        "py-201",
		Reason:        "Matches your python gap",
		PriorityScore: 0.9,
	}, recs[0])
	assert.Equal(t, "stats-110", recs[1].NodeID)
	assert.True(t, recs[1].Explored)
	assert.Equal(t, DefaultNodeType, recs[1].NodeType)
	assert.Equal(t, "sql-101", recs[2].NodeID)
	assert.Equal(t, "Matches your sql gap", recs[2].Reason)
}

// TestPathAssembler_Truncation tests every result size
func TestPathAssembler_Truncation(t *testing.T) {
	pa := NewPathAssembler()
	scored := scoredFixture()

	for k := -2; k <= len(scored)+3; k++ {
		want := k
		if want < 0 {
			want = 0
		}
		if want > len(scored) {
			want = len(scored)
		}
		recs := pa.Assemble(scored, k)
		assert.Len(t, recs, want, "k=%d", k)
		assert.NotNil(t, recs)

		for i := 1; i < len(recs); i++ {
			assert.GreaterOrEqual(t, recs[i-1].PriorityScore, recs[i].PriorityScore)
		}
	}

	assert.Empty(t, pa.Assemble(nil, 5))
}

// TestPathAssembler_StableTies tests that equal scores keep input order
func TestPathAssembler_StableTies(t *testing.T) {
	scored := []ScoredCandidate{
		{Node: ContentNode{ID: "a"}, Score: 0.5},
		{Node: ContentNode{ID: "b"}, Score: 0.8},
		{Node: ContentNode{ID: "c"}, Score: 0.5},
		{Node: ContentNode{ID: "d"}, Score: 0.5},
	}

	recs := NewPathAssembler().Assemble(scored, 4)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.NodeID
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
}

// TestPathAssembler_InputUntouched tests that the caller's slice is not reordered
func TestPathAssembler_InputUntouched(t *testing.T) {
	scored := scoredFixture()
	want := scoredFixture()

	NewPathAssembler().Assemble(scored, 2)
	assert.Equal(t, want, scored)
}
