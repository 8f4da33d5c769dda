package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/rs/zerolog"
)

const testDim = 16

var nopLogger = zerolog.Nop()

// searchFunc adapts a function to SimilaritySearch
type searchFunc func(ctx context.Context, query Vector, topK int) ([]ContentNode, error)

func (f searchFunc) Search(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	return f(ctx, query, topK)
}

// countingSearch wraps a search and counts calls
type countingSearch struct {
	inner SimilaritySearch
	calls atomic.Int64
}

func (c *countingSearch) Search(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	c.calls.Add(1)
	return c.inner.Search(ctx, query, topK)
}

// encoderFunc adapts a function to Encoder
type encoderFunc func(ctx context.Context, profile LearnerProfile) (Vector, error)

func (f encoderFunc) Encode(ctx context.Context, profile LearnerProfile) (Vector, error) {
	return f(ctx, profile)
}

// retrieverFunc adapts a function to Retriever
type retrieverFunc func(ctx context.Context, query Vector, topK int) ([]ContentNode, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query Vector, topK int) ([]ContentNode, error) {
	return f(ctx, query, topK)
}

// roleMap is a RoleVectorLookup with an optional forced failure
type roleMap struct {
	roles map[string]Vector
	err   error
}

func (r roleMap) Lookup(ctx context.Context, roleID string) (Vector, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return v, nil
}

// fixedSource replays a fixed draw sequence, then repeats the last value
type fixedSource struct {
	draws []float64
	next  int
}

func (s *fixedSource) Float64() float64 {
	if s.next >= len(s.draws) {
		return s.draws[len(s.draws)-1]
	}
	d := s.draws[s.next]
	s.next++
	return d
}

// recordingTracer captures span names in start order
type recordingTracer struct {
	mu    sync.Mutex
	spans []string
	errs  map[string]error
}

func (rt *recordingTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	rt.mu.Lock()
	rt.spans = append(rt.spans, name)
	rt.mu.Unlock()
	return ctx, func(err error) {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.errs == nil {
			rt.errs = make(map[string]error)
		}
		rt.errs[name] = err
	}
}

func (rt *recordingTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// unit returns the i-th standard basis vector of length dim
func unit(dim, i int) Vector {
	v := make(Vector, dim)
	v[i] = 1
	return v
}

// testConfig returns defaults shrunk to testDim with exploration disabled
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Recommend.Dimension = testDim
	cfg.Exploration.Probability = 0
	return cfg
}
