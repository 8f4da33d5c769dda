package service

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// maxLatencySamples bounds the in-process latency windows
const maxLatencySamples = 1000

// MetricsCollector collects pipeline metrics. It keeps an in-process summary
// and mirrors every observation into Prometheus collectors when a registerer
// is supplied. A nil *MetricsCollector is valid and records nothing.
type MetricsCollector struct {
	mu sync.RWMutex

	// Counters
	requestCount   int64
	retrievalCount int64
	explorations   int64
	candidates     int64

	// Latency tracking
	requestLatency   []time.Duration
	retrievalLatency []time.Duration

	// Error tracking
	retrievalErrors int64
	stageErrors     map[Stage]int64

	breakerState string

	prom *promMetrics
}

type promMetrics struct {
	requests         *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	retrievalLatency prometheus.Histogram
	retrievalErrors  prometheus.Counter
	candidates       prometheus.Histogram
	explorations     prometheus.Counter
	breakerOpen      prometheus.Gauge
}

// NewMetricsCollector creates a new metrics collector. reg may be nil.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		requestLatency:   make([]time.Duration, 0, maxLatencySamples),
		retrievalLatency: make([]time.Duration, 0, maxLatencySamples),
		stageErrors:      make(map[Stage]int64),
		breakerState:     "closed",
	}
	if reg != nil {
		mc.prom = newPromMetrics(reg)
	}
	return mc
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	pm := &promMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learnpath_recommend_requests_total",
				Help: "Recommendation requests by terminal stage",
			},
			[]string{"stage"},
		),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnpath_recommend_duration_seconds",
			Help:    "End-to-end recommendation latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		retrievalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnpath_retrieval_duration_seconds",
			Help:    "Similarity search latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1},
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnpath_retrieval_errors_total",
			Help: "Similarity search failures, including timeouts and open breaker",
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnpath_retrieval_candidates",
			Help:    "Candidates returned per retrieval",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		explorations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnpath_exploration_boosts_total",
			Help: "Scores boosted by serendipity injection",
		}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "learnpath_retrieval_breaker_open",
			Help: "1 while the retrieval circuit breaker is open",
		}),
	}
	reg.MustRegister(
		pm.requests,
		pm.requestDuration,
		pm.retrievalLatency,
		pm.retrievalErrors,
		pm.candidates,
		pm.explorations,
		pm.breakerOpen,
	)
	return pm
}

// RecordRequest records a finished pipeline call. failed is "" on success.
func (mc *MetricsCollector) RecordRequest(duration time.Duration, failed Stage) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requestCount++
	mc.requestLatency = appendBounded(mc.requestLatency, duration)
	stage := StageReturned
	if failed != "" {
		mc.stageErrors[failed]++
		stage = failed
	}

	if mc.prom != nil {
		mc.prom.requests.WithLabelValues(string(stage)).Inc()
		mc.prom.requestDuration.Observe(duration.Seconds())
	}
}

// RecordRetrieval records a similarity search call
func (mc *MetricsCollector) RecordRetrieval(duration time.Duration, err error) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.retrievalCount++
	mc.retrievalLatency = appendBounded(mc.retrievalLatency, duration)
	if err != nil {
		mc.retrievalErrors++
	}

	if mc.prom != nil {
		mc.prom.retrievalLatency.Observe(duration.Seconds())
		if err != nil {
			mc.prom.retrievalErrors.Inc()
		}
	}
}

// RecordCandidates records the size of a retrieved candidate set
func (mc *MetricsCollector) RecordCandidates(n int) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.candidates += int64(n)
	if mc.prom != nil {
		mc.prom.candidates.Observe(float64(n))
	}
}

// RecordExplorations records how many scores were boosted in one request
func (mc *MetricsCollector) RecordExplorations(n int) {
	if mc == nil || n == 0 {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.explorations += int64(n)
	if mc.prom != nil {
		mc.prom.explorations.Add(float64(n))
	}
}

// RecordBreakerState records a circuit breaker transition
func (mc *MetricsCollector) RecordBreakerState(state string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.breakerState = state
	if mc.prom != nil {
		if state == "open" {
			mc.prom.breakerOpen.Set(1)
		} else {
			mc.prom.breakerOpen.Set(0)
		}
	}
}

// GetSummary returns a summary of collected metrics
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	if mc == nil {
		return MetricsSummary{}
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	stageErrors := make(map[Stage]int64, len(mc.stageErrors))
	for k, v := range mc.stageErrors {
		stageErrors[k] = v
	}

	return MetricsSummary{
		RequestCount:     mc.requestCount,
		RetrievalCount:   mc.retrievalCount,
		RetrievalErrors:  mc.retrievalErrors,
		Explorations:     mc.explorations,
		Candidates:       mc.candidates,
		StageErrors:      stageErrors,
		BreakerState:     mc.breakerState,
		RequestLatency:   calculatePercentiles(mc.requestLatency),
		RetrievalLatency: calculatePercentiles(mc.retrievalLatency),
	}
}

// Reset clears all collected metrics. Prometheus collectors are cumulative
// and are left alone.
func (mc *MetricsCollector) Reset() {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requestCount = 0
	mc.retrievalCount = 0
	mc.retrievalErrors = 0
	mc.explorations = 0
	mc.candidates = 0
	mc.requestLatency = mc.requestLatency[:0]
	mc.retrievalLatency = mc.retrievalLatency[:0]
	mc.stageErrors = make(map[Stage]int64)
}

// MetricsSummary represents a summary of collected metrics
type MetricsSummary struct {
	RequestCount     int64              `json:"request_count"`
	RetrievalCount   int64              `json:"retrieval_count"`
	RetrievalErrors  int64              `json:"retrieval_errors"`
	Explorations     int64              `json:"explorations"`
	Candidates       int64              `json:"candidates"`
	StageErrors      map[Stage]int64    `json:"stage_errors"`
	BreakerState     string             `json:"breaker_state"`
	RequestLatency   LatencyPercentiles `json:"request_latency"`
	RetrievalLatency LatencyPercentiles `json:"retrieval_latency"`
}

// LatencyPercentiles represents latency percentiles
type LatencyPercentiles struct {
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// calculatePercentiles calculates p50, p95, p99 latencies
func calculatePercentiles(latencies []time.Duration) LatencyPercentiles {
	if len(latencies) == 0 {
		return LatencyPercentiles{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: sorted[len(sorted)*50/100],
		P95: sorted[len(sorted)*95/100],
		P99: sorted[len(sorted)*99/100],
	}
}

// appendBounded keeps the most recent maxLatencySamples observations
func appendBounded(window []time.Duration, d time.Duration) []time.Duration {
	if len(window) >= maxLatencySamples {
		copy(window, window[1:])
		window = window[:len(window)-1]
	}
	return append(window, d)
}
