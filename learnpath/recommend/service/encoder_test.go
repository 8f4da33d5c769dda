package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(t *testing.T, roles RoleVectorLookup) *ProfileEncoder {
	t.Helper()
	enc, err := NewProfileEncoder(testDim, config.Default().Encoder, roles, nopLogger)
	require.NoError(t, err)
	return enc
}

// TestNewProfileEncoder_TooSmall rejects dimensions without room for skills
func TestNewProfileEncoder_TooSmall(t *testing.T) {
	_, err := NewProfileEncoder(len(KnownStyles), config.Default().Encoder, nil, nopLogger)
	assert.Error(t, err)
}

// TestProfileEncoder_Deterministic checks identical input gives identical output
func TestProfileEncoder_Deterministic(t *testing.T) {
	roles := roleMap{roles: map[string]Vector{
		"data-engineer": unit(testDim, 10),
		"ml-engineer":   unit(testDim, 11),
	}}
	enc := newTestEncoder(t, roles)

	profile := LearnerProfile{
		Skills:      map[string]float64{"python": 0.3, "sql": 0.8, "statistics": 0.5},
		Style:       StyleVisual,
		Aspirations: []string{"ml-engineer", "data-engineer"},
	}

	first, err := enc.Encode(context.Background(), profile)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := enc.Encode(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first, testDim)

	// Aspiration order does not matter
	profile.Aspirations = []string{"data-engineer", "ml-engineer"}
	swapped, err := enc.Encode(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, first, swapped)
}

// TestProfileEncoder_SkillNamesCaseInsensitive checks skill hashing folds case
func TestProfileEncoder_SkillNamesCaseInsensitive(t *testing.T) {
	enc := newTestEncoder(t, nil)

	lower, err := enc.Encode(context.Background(), LearnerProfile{Skills: map[string]float64{"python": 0.4}})
	require.NoError(t, err)
	upper, err := enc.Encode(context.Background(), LearnerProfile{Skills: map[string]float64{" Python": 0.4}})
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

// TestProfileEncoder_SkillOnly checks a profile degrades to its skill group
func TestProfileEncoder_SkillOnly(t *testing.T) {
	enc := newTestEncoder(t, roleMap{})

	vec, err := enc.Encode(context.Background(), LearnerProfile{
		Skills:      map[string]float64{"python": 0.3},
		Style:       "interpretive-dance",
		Aspirations: []string{"astronaut"},
	})
	require.NoError(t, err)

	// Style slots stay empty, skill group is unit length with weight 1
	for i := range KnownStyles {
		assert.Zero(t, vec[i])
	}
	assert.InDelta(t, 1.0, vec.Norm(), 1e-9)
}

// TestProfileEncoder_StyleOnly checks the one-hot slot and its weight
func TestProfileEncoder_StyleOnly(t *testing.T) {
	enc := newTestEncoder(t, nil)

	vec, err := enc.Encode(context.Background(), LearnerProfile{Style: "Reading/Writing"})
	require.NoError(t, err)

	want := make(Vector, testDim)
	want[3] = config.Default().Encoder.StyleWeight
	assert.Equal(t, want, vec)
}

// TestProfileEncoder_AspirationsAveraged checks role vectors are averaged and normalized
func TestProfileEncoder_AspirationsAveraged(t *testing.T) {
	enc := newTestEncoder(t, roleMap{roles: map[string]Vector{
		"a": unit(testDim, 8),
		"b": unit(testDim, 9),
	}})

	vec, err := enc.Encode(context.Background(), LearnerProfile{Aspirations: []string{"a", "b", "b", "missing"}})
	require.NoError(t, err)
	assert.InDelta(t, 1/1.4142135623730951, vec[8], 1e-9)
	assert.InDelta(t, vec[8], vec[9], 1e-12)
}

// TestProfileEncoder_InvalidProfile covers unusable and out-of-range input
func TestProfileEncoder_InvalidProfile(t *testing.T) {
	enc := newTestEncoder(t, roleMap{})

	tests := []struct {
		name    string
		profile LearnerProfile
	}{
		{name: "empty", profile: LearnerProfile{}},
		{name: "unknown style only", profile: LearnerProfile{Style: "telepathic"}},
		{name: "unresolvable aspirations", profile: LearnerProfile{Aspirations: []string{"astronaut"}}},
		{name: "all zero skills", profile: LearnerProfile{Skills: map[string]float64{"go": 0}}},
		{name: "skill above range", profile: LearnerProfile{Skills: map[string]float64{"go": 1.5}}},
		{name: "negative skill", profile: LearnerProfile{Skills: map[string]float64{"go": -0.1}}},
		{name: "empty skill name", profile: LearnerProfile{Skills: map[string]float64{"": 0.5}}},
		{name: "empty aspiration id", profile: LearnerProfile{Style: StyleVisual, Aspirations: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(context.Background(), tt.profile)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

// TestProfileEncoder_RoleLookupFailures checks registry errors are typed
func TestProfileEncoder_RoleLookupFailures(t *testing.T) {
	profile := LearnerProfile{Skills: map[string]float64{"go": 0.5}, Aspirations: []string{"sre"}}

	outage := newTestEncoder(t, roleMap{err: errors.New("connection refused")})
	_, err := outage.Encode(context.Background(), profile)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)

	short := newTestEncoder(t, roleMap{roles: map[string]Vector{"sre": {1, 0, 0}}})
	_, err = short.Encode(context.Background(), profile)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
