package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// ProfileEncoder implements Encoder by combining skills, learning style and
// aspirations into one dense vector.
//
// Layout: slots [0, len(KnownStyles)) hold the style one-hot, skills are
// feature-hashed into the remaining slots, and the averaged aspiration
// vector spans the full dimension.
type ProfileEncoder struct {
	dimension        int
	skillWeight      float64
	styleWeight      float64
	aspirationWeight float64
	roles            RoleVectorLookup
	logger           zerolog.Logger
}

// NewProfileEncoder creates an encoder. roles may be nil, in which case
// aspirations never contribute.
func NewProfileEncoder(dimension int, cfg config.EncoderConfig, roles RoleVectorLookup, logger zerolog.Logger) (*ProfileEncoder, error) {
	if dimension <= len(KnownStyles) {
		return nil, fmt.Errorf("embedding dimension %d too small: need more than %d slots", dimension, len(KnownStyles))
	}
	return &ProfileEncoder{
		dimension:        dimension,
		skillWeight:      cfg.SkillWeight,
		styleWeight:      cfg.StyleWeight,
		aspirationWeight: cfg.AspirationWeight,
		roles:            roles,
		logger:           logger.With().Str("component", "encoder").Logger(),
	}, nil
}

// Dimension returns the output vector length
func (e *ProfileEncoder) Dimension() int {
	return e.dimension
}

// Encode builds the learner vector. It is deterministic for identical input.
func (e *ProfileEncoder) Encode(ctx context.Context, profile LearnerProfile) (Vector, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	skills, hasSkills := e.encodeSkills(profile.Skills)
	style, hasStyle := e.encodeStyle(profile.Style)
	aspirations, hasAspirations, err := e.encodeAspirations(ctx, profile.Aspirations)
	if err != nil {
		return nil, err
	}

	if !hasSkills && !hasStyle && !hasAspirations {
		return nil, fmt.Errorf("%w: no skills, no resolvable aspirations and unknown learning style %q", ErrInvalidProfile, profile.Style)
	}

	out := make(Vector, e.dimension)
	if hasSkills {
		floats.AddScaled(out, e.skillWeight, skills)
	}
	if hasStyle {
		floats.AddScaled(out, e.styleWeight, style)
	}
	if hasAspirations {
		floats.AddScaled(out, e.aspirationWeight, aspirations)
	}

	e.logger.Debug().
		Bool("skills", hasSkills).
		Bool("style", hasStyle).
		Bool("aspirations", hasAspirations).
		Float64("norm", out.Norm()).
		Msg("encoded learner profile")

	return out, nil
}

// encodeSkills hashes each skill into a signed bucket weighted by its score,
// then normalizes the group so profiles with many skills do not dominate.
func (e *ProfileEncoder) encodeSkills(skills map[string]float64) ([]float64, bool) {
	if len(skills) == 0 {
		return nil, false
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	// Map order is random; summation order must not be.
	sort.Strings(names)

	offset := len(KnownStyles)
	buckets := e.dimension - offset
	vec := make([]float64, e.dimension)
	for _, name := range names {
		idx, sign := hashSkill(name, buckets)
		vec[offset+idx] += sign * skills[name]
	}

	// All-zero scores, or opposite-signed skills sharing a bucket, carry no signal
	if normalize(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (e *ProfileEncoder) encodeStyle(style LearningStyle) ([]float64, bool) {
	slot, ok := style.slot()
	if !ok {
		return nil, false
	}
	vec := make([]float64, e.dimension)
	vec[slot] = 1
	return vec, true
}

// encodeAspirations averages the role vectors of known roles. Unknown roles
// are skipped; a vector of the wrong length is a registry bug.
func (e *ProfileEncoder) encodeAspirations(ctx context.Context, roleIDs []string) ([]float64, bool, error) {
	if len(roleIDs) == 0 || e.roles == nil {
		return nil, false, nil
	}

	ids := make([]string, len(roleIDs))
	copy(ids, roleIDs)
	sort.Strings(ids)

	sum := make([]float64, e.dimension)
	found := 0
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		vec, err := e.roles.Lookup(ctx, id)
		if errors.Is(err, ErrRoleNotFound) {
			e.logger.Debug().Str("role", id).Msg("aspiration role not in registry, skipping")
			continue
		}
		if err != nil {
			// Registry outage: recoverable like a search outage
			return nil, false, fmt.Errorf("%w: lookup role %q: %w", ErrRetrievalUnavailable, id, err)
		}
		if len(vec) != e.dimension {
			return nil, false, dimensionError(fmt.Sprintf("role vector %q", id), e.dimension, len(vec))
		}
		floats.Add(sum, vec)
		found++
	}

	if found == 0 {
		return nil, false, nil
	}
	floats.Scale(1/float64(found), sum)
	if normalize(sum) == 0 {
		return nil, false, nil
	}
	return sum, true, nil
}

// hashSkill maps a skill name to a bucket and a ±1 sign (feature hashing)
func hashSkill(name string, buckets int) (int, float64) {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	sum := h.Sum64()
	idx := int(sum % uint64(buckets))
	if (sum>>63)&1 == 1 {
		return idx, -1
	}
	return idx, 1
}
