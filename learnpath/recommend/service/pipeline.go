package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

// RecommendationPipeline is the main entry point of the recommendation core.
// It runs one request through
// Received -> Encoded -> Retrieved -> Scored -> Perturbed -> Assembled -> Returned
// and either returns the complete ranked list or a single *StageError.
// It never retries; retry and fallback are caller policy.
type RecommendationPipeline struct {
	encoder   Encoder
	retriever Retriever
	scorer    SuccessScorer
	booster   *MarketBoost
	assembler *PathAssembler

	exploration   config.ExplorationConfig
	k             int
	candidatePool int
	workers       int
	newSource     func() RandomSource

	tracer  Tracer
	metrics *MetricsCollector
	logger  zerolog.Logger
}

// PipelineDeps holds everything needed to build a pipeline
type PipelineDeps struct {
	Config    *config.Config
	Encoder   Encoder
	Retriever Retriever

	// Optional: defaults to cosine similarity
	Scorer SuccessScorer
	// Optional: per-request random source factory; defaults to the
	// configured seed, or an independent seed per request when it is zero
	SourceFactory func() RandomSource

	Tracer  Tracer
	Metrics *MetricsCollector
	Logger  zerolog.Logger
}

// NewRecommendationPipeline wires a pipeline from injected collaborators
func NewRecommendationPipeline(deps PipelineDeps) (*RecommendationPipeline, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}

	cfg := deps.Config
	p := &RecommendationPipeline{
		encoder:       deps.Encoder,
		retriever:     deps.Retriever,
		scorer:        deps.Scorer,
		booster:       NewMarketBoost(cfg.Ranker.MarketBoostWeight),
		assembler:     NewPathAssembler(),
		exploration:   cfg.Exploration,
		k:             cfg.Recommend.K,
		candidatePool: cfg.Recommend.CandidatePool,
		workers:       cfg.Recommend.ScoreWorkers,
		newSource:     deps.SourceFactory,
		tracer:        deps.Tracer,
		metrics:       deps.Metrics,
		logger:        deps.Logger.With().Str("component", "pipeline").Logger(),
	}

	if p.scorer == nil {
		p.scorer = NewCosineScorer(cfg.Recommend.Dimension)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.newSource == nil {
		seed := cfg.Exploration.Seed
		p.newSource = func() RandomSource {
			if seed != 0 {
				return SeededSource(seed)
			}
			return freshSource()
		}
	}

	lo, hi := p.scorer.Semantic().Range()
	p.logger.Info().
		Str("score_semantic", string(p.scorer.Semantic())).
		Float64("score_min", lo).
		Float64("score_max", hi).
		Float64("exploration_probability", p.exploration.Probability).
		Float64("exploration_boost", p.exploration.Boost).
		Msg("recommendation pipeline ready")

	return p, nil
}

// ScoreSemantic reports the active scorer's semantic
func (p *RecommendationPipeline) ScoreSemantic() ScoreSemantic {
	return p.scorer.Semantic()
}

type recommendOptions struct {
	k      *int
	source RandomSource
}

// RecommendOption customizes a single Recommend call
type RecommendOption func(*recommendOptions)

// WithK overrides the configured result size
func WithK(k int) RecommendOption {
	return func(o *recommendOptions) { o.k = &k }
}

// WithRandomSource fixes the exploration source for this call
func WithRandomSource(src RandomSource) RecommendOption {
	return func(o *recommendOptions) { o.source = src }
}

// Recommend returns exactly min(K, candidate count) recommendations
func (p *RecommendationPipeline) Recommend(ctx context.Context, learnerID string, profile LearnerProfile, opts ...RecommendOption) (recs []RankedRecommendation, err error) {
	var o recommendOptions
	for _, opt := range opts {
		opt(&o)
	}
	k := p.k
	if o.k != nil {
		k = *o.k
	}
	src := o.source
	if src == nil {
		src = p.newSource()
	}

	start := time.Now()
	log := p.logger.With().
		Str("request_id", uuid.NewString()).
		Str("learner_id", learnerID).
		Logger()
	log.Debug().Str("stage", string(StageReceived)).Int("k", k).Msg("recommendation requested")

	defer func() {
		p.metrics.RecordRequest(time.Since(start), FailedStage(err))
		if err != nil {
			log.Warn().Err(err).Str("stage", string(FailedStage(err))).Msg("recommendation failed")
		}
	}()

	// 1. Encode the learner profile
	var learnerVec Vector
	if err := p.stage(ctx, StageEncoded, func(ctx context.Context) error {
		v, err := p.encoder.Encode(ctx, profile)
		if err != nil {
			return classify(ctx, err, ErrInvalidProfile)
		}
		learnerVec = v
		return nil
	}); err != nil {
		return nil, err
	}

	// 2. Candidate generation
	pool := p.candidatePool
	if pool < k {
		pool = k
	}
	var candidates []ContentNode
	if err := p.stage(ctx, StageRetrieved, func(ctx context.Context) error {
		c, err := p.retriever.Retrieve(ctx, learnerVec, pool)
		if err != nil {
			return classify(ctx, err, ErrRetrievalUnavailable)
		}
		candidates = c
		return nil
	}); err != nil {
		return nil, err
	}
	p.metrics.RecordCandidates(len(candidates))
	log.Debug().Str("stage", string(StageRetrieved)).Int("candidates", len(candidates)).Msg("candidates retrieved")

	// 3. Ranking
	var scored []ScoredCandidate
	if err := p.stage(ctx, StageScored, func(ctx context.Context) error {
		s, err := p.scoreAll(learnerVec, candidates)
		if err != nil {
			return err
		}
		scored = s
		return nil
	}); err != nil {
		return nil, err
	}

	// 4. Serendipity injection, in input order so draws follow the seed
	explored := 0
	_ = p.stage(ctx, StagePerturbed, func(ctx context.Context) error {
		injector := NewExplorationInjector(p.exploration, src)
		for i := range scored {
			scored[i].Score, scored[i].Explored = injector.Perturb(scored[i].Score)
			if scored[i].Explored {
				explored++
				if p.tracer != nil {
					p.tracer.Event(ctx, "exploration_boost", map[string]any{"node_id": scored[i].Node.ID})
				}
			}
		}
		return nil
	})
	p.metrics.RecordExplorations(explored)

	// 5. Sort, truncate, annotate
	_ = p.stage(ctx, StageAssembled, func(context.Context) error {
		recs = p.assembler.Assemble(scored, k)
		return nil
	})

	log.Debug().
		Str("stage", string(StageReturned)).
		Int("returned", len(recs)).
		Int("explored", explored).
		Dur("duration", time.Since(start)).
		Msg("recommendation complete")

	return recs, nil
}

// scoreAll scores every candidate concurrently. Results keep input order.
func (p *RecommendationPipeline) scoreAll(learner Vector, candidates []ContentNode) ([]ScoredCandidate, error) {
	mapper := iter.Mapper[ContentNode, ScoredCandidate]{MaxGoroutines: p.workers}
	return mapper.MapErr(candidates, func(node *ContentNode) (ScoredCandidate, error) {
		score, err := p.scorer.Score(learner, node.Vector)
		if err != nil {
			return ScoredCandidate{}, fmt.Errorf("score candidate %q: %w", node.ID, err)
		}
		return ScoredCandidate{
			Node:  *node,
			Score: p.booster.Apply(score, *node),
		}, nil
	})
}

// stage runs fn inside a tracing span and tags failures with the stage
func (p *RecommendationPipeline) stage(ctx context.Context, name Stage, fn func(context.Context) error) error {
	finish := func(error) {}
	if p.tracer != nil {
		ctx, finish = p.tracer.StartSpan(ctx, "recommend."+string(name), nil)
	}

	err := fn(ctx)
	finish(err)
	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

// classify leaves typed failures and the caller's own cancellation alone and
// tags anything else with fallback
func classify(ctx context.Context, err error, fallback error) error {
	if errors.Is(err, ErrInvalidProfile) ||
		errors.Is(err, ErrRetrievalUnavailable) ||
		errors.Is(err, ErrDimensionMismatch) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%w: %w", fallback, err)
}
