package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// CandidateRetriever implements Retriever on top of a SimilaritySearch
// collaborator. It shapes the query, bounds the call with a timeout and a
// circuit breaker, and validates the result count.
type CandidateRetriever struct {
	search    SimilaritySearch
	dimension int
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker[[]ContentNode]
	metrics   *MetricsCollector
	logger    zerolog.Logger
}

// NewCandidateRetriever creates a new retriever
func NewCandidateRetriever(search SimilaritySearch, dimension int, cfg config.RetrievalConfig, metrics *MetricsCollector, logger zerolog.Logger) *CandidateRetriever {
	ret := &CandidateRetriever{
		search:    search,
		dimension: dimension,
		timeout:   cfg.Timeout,
		metrics:   metrics,
		logger:    logger.With().Str("component", "retriever").Logger(),
	}

	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "similarity-search",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ret.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("retrieval circuit breaker state change")
			ret.metrics.RecordBreakerState(to.String())
		},
		// A caller that gives up is not a backend failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	ret.breaker = gobreaker.NewCircuitBreaker[[]ContentNode](settings)

	return ret
}

// Retrieve returns at most topK candidates nearest to query.
func (ret *CandidateRetriever) Retrieve(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	if len(query) != ret.dimension {
		return nil, dimensionError("query vector", ret.dimension, len(query))
	}
	if topK <= 0 {
		return []ContentNode{}, nil
	}

	start := time.Now()
	nodes, err := ret.breaker.Execute(func() ([]ContentNode, error) {
		return ret.searchWithTimeout(ctx, query, topK)
	})
	ret.metrics.RecordRetrieval(time.Since(start), err)

	if err != nil {
		ret.logger.Warn().Err(err).Int("top_k", topK).Msg("similarity search failed")
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	if len(nodes) > topK {
		ret.logger.Warn().
			Int("returned", len(nodes)).
			Int("top_k", topK).
			Msg("similarity search returned more than requested, truncating")
		nodes = nodes[:topK]
	}
	if nodes == nil {
		nodes = []ContentNode{}
	}

	return nodes, nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (ret *CandidateRetriever) BreakerState() string {
	return ret.breaker.State().String()
}

// searchWithTimeout runs the collaborator call so that a backend ignoring
// its context still cannot hold the request past the deadline.
func (ret *CandidateRetriever) searchWithTimeout(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	if ret.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ret.timeout)
		defer cancel()
	}

	type result struct {
		nodes []ContentNode
		err   error
	}
	done := make(chan result, 1)
	go func() {
		nodes, err := ret.search.Search(ctx, query.Clone(), topK)
		done <- result{nodes: nodes, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.nodes, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("similarity search: %w", ctx.Err())
	}
}
