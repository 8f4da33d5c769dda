package service

import (
	"math/rand/v2"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
)

// ExplorationInjector boosts a random fraction of scores so the ranking
// occasionally surfaces non-obvious nodes. It is the only intentionally
// stochastic stage and draws exclusively from its injected source.
//
// An injector is not safe for concurrent use; *rand.Rand is not.
type ExplorationInjector struct {
	probability float64
	boost       float64
	src         RandomSource
}

// NewExplorationInjector creates an injector drawing from src
func NewExplorationInjector(cfg config.ExplorationConfig, src RandomSource) *ExplorationInjector {
	return &ExplorationInjector{
		probability: cfg.Probability,
		boost:       cfg.Boost,
		src:         src,
	}
}

// Perturb returns the possibly boosted score and whether the boost fired.
// Every call consumes exactly one draw so outcomes line up with a seed.
func (ei *ExplorationInjector) Perturb(score float64) (float64, bool) {
	if ei.src.Float64() < ei.probability {
		return score * ei.boost, true
	}
	return score, false
}

// SeededSource returns a PCG source; equal seeds give equal draw sequences
func SeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// freshSource returns an independently seeded source for one request
func freshSource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
