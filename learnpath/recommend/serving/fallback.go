package serving

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

// PopularReason annotates recommendations served from the popular list
const PopularReason = "Popular with learners on your path"

// Source reports where a response came from
type Source string

const (
	SourceLive    Source = "live"
	SourceCache   Source = "cache"
	SourcePopular Source = "popular"
)

// Recommender is the core pipeline as seen by the serving layer
type Recommender interface {
	Recommend(ctx context.Context, learnerID string, profile service.LearnerProfile, opts ...service.RecommendOption) ([]service.RankedRecommendation, error)
}

// Cache stores the last good recommendations per learner id
type Cache interface {
	Get(ctx context.Context, learnerID string) ([]service.RankedRecommendation, bool)
	Set(ctx context.Context, learnerID string, recs []service.RankedRecommendation, ttl time.Duration) error
}

// FallbackRecommender degrades gracefully when retrieval is unavailable.
// Only recoverable failures are absorbed; every other error is returned.
type FallbackRecommender struct {
	next    Recommender
	cache   Cache
	enabled bool
	ttl     time.Duration
	popular []string
	k       int
	logger  zerolog.Logger
}

// NewFallbackRecommender wraps next. cache may be nil.
func NewFallbackRecommender(next Recommender, cache Cache, cfg *config.Config, logger zerolog.Logger) *FallbackRecommender {
	return &FallbackRecommender{
		next:    next,
		cache:   cache,
		enabled: cfg.Serving.FallbackEnabled,
		ttl:     time.Duration(cfg.Serving.FallbackTTLSeconds) * time.Second,
		popular: cfg.Serving.PopularNodes,
		k:       cfg.Recommend.K,
		logger:  logger.With().Str("component", "fallback").Logger(),
	}
}

// Recommend serves live results, or cached/popular ones on a retrieval outage
func (f *FallbackRecommender) Recommend(ctx context.Context, learnerID string, profile service.LearnerProfile, k *int) ([]service.RankedRecommendation, Source, error) {
	var opts []service.RecommendOption
	limit := f.k
	if k != nil {
		opts = append(opts, service.WithK(*k))
		limit = *k
	}

	recs, err := f.next.Recommend(ctx, learnerID, profile, opts...)
	if err == nil {
		f.remember(ctx, learnerID, recs)
		return recs, SourceLive, nil
	}

	if !f.enabled || !service.IsRecoverable(err) {
		return nil, "", err
	}

	if cached, ok := f.recall(ctx, learnerID); ok {
		f.logger.Warn().Err(err).Str("learner_id", learnerID).Msg("serving cached recommendations")
		return truncate(cached, limit), SourceCache, nil
	}

	if len(f.popular) > 0 {
		f.logger.Warn().Err(err).Str("learner_id", learnerID).Msg("serving popular recommendations")
		return truncate(popularList(f.popular), limit), SourcePopular, nil
	}

	return nil, "", err
}

func (f *FallbackRecommender) remember(ctx context.Context, learnerID string, recs []service.RankedRecommendation) {
	if f.cache == nil || len(recs) == 0 {
		return
	}
	if err := f.cache.Set(ctx, learnerID, slices.Clone(recs), f.ttl); err != nil {
		f.logger.Warn().Err(err).Msg("failed to cache recommendations")
	}
}

func (f *FallbackRecommender) recall(ctx context.Context, learnerID string) ([]service.RankedRecommendation, bool) {
	if f.cache == nil {
		return nil, false
	}
	recs, ok := f.cache.Get(ctx, learnerID)
	if !ok || len(recs) == 0 {
		return nil, false
	}
	return slices.Clone(recs), true
}

func popularList(ids []string) []service.RankedRecommendation {
	out := make([]service.RankedRecommendation, len(ids))
	for i, id := range ids {
		out[i] = service.RankedRecommendation{
			NodeType: service.DefaultNodeType,
			NodeID:   id,
			Reason:   PopularReason,
		}
	}
	return out
}

func truncate(recs []service.RankedRecommendation, k int) []service.RankedRecommendation {
	if k < 0 {
		k = 0
	}
	if k < len(recs) {
		return recs[:k]
	}
	return recs
}
