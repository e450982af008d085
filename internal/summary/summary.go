// Package summary aggregates probe outcomes into a batch summary and renders
// it in text, JSON, or YAML form.
package summary

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/outboundlb/proxyprobe/internal/probe"
)

// Aggregator tallies outcomes in a thread-safe manner. Recording is purely
// additive and commutative: any permutation of the same outcomes yields the
// same summary.
type Aggregator struct {
	mu         sync.Mutex
	counts     map[probe.Kind]int64
	dist       map[string]int64
	hist       *hdrhistogram.Histogram
	sumLatency time.Duration
	minLatency time.Duration
	maxLatency time.Duration
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Aggregator{
		counts: make(map[probe.Kind]int64),
		dist:   make(map[string]int64),
		hist:   hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Record tallies one outcome.
func (a *Aggregator) Record(out probe.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts[out.Kind]++
	if out.Kind == probe.Success {
		key := out.DistributionKey
		if key == "" {
			key = probe.UnknownKey
		}
		a.dist[key]++
	}

	if out.Elapsed > 0 {
		us := out.Elapsed.Microseconds()
		if us < a.hist.LowestTrackableValue() {
			us = a.hist.LowestTrackableValue()
		}
		if us > a.hist.HighestTrackableValue() {
			us = a.hist.HighestTrackableValue()
		}
		_ = a.hist.RecordValue(us)
	}
	a.sumLatency += out.Elapsed
	if a.minLatency == 0 || out.Elapsed < a.minLatency {
		a.minLatency = out.Elapsed
	}
	if out.Elapsed > a.maxLatency {
		a.maxLatency = out.Elapsed
	}
}

// Total returns the number of outcomes recorded so far.
func (a *Aggregator) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total int64
	for _, n := range a.counts {
		total += n
	}
	return total
}

// Summary is the finalized view of a batch. Counts is keyed by outcome kind
// name; Distribution by the backend identity extracted from successful
// responses.
type Summary struct {
	BatchID      string           `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Model        string           `json:"model,omitempty" yaml:"model,omitempty"`
	Submitted    int              `json:"submitted" yaml:"submitted"`
	Total        int64            `json:"total" yaml:"total"`
	Counts       map[string]int64 `json:"counts" yaml:"counts"`
	Distribution map[string]int64 `json:"distribution,omitempty" yaml:"distribution,omitempty"`

	Duration       time.Duration `json:"-" yaml:"-"`
	DurationMs     float64       `json:"duration_ms" yaml:"duration_ms"`
	RequestsPerSec float64       `json:"requests_per_sec" yaml:"requests_per_sec"`

	MinLatency  time.Duration `json:"-" yaml:"-"`
	MaxLatency  time.Duration `json:"-" yaml:"-"`
	MeanLatency time.Duration `json:"-" yaml:"-"`
	P50Latency  time.Duration `json:"-" yaml:"-"`
	P90Latency  time.Duration `json:"-" yaml:"-"`
	P99Latency  time.Duration `json:"-" yaml:"-"`

	// JSON/YAML-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms" yaml:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
}

// Successes returns the success count.
func (s Summary) Successes() int64 {
	return s.Counts[probe.Success.String()]
}

// Summarize finalizes the aggregator into a read-only Summary. submitted is
// the number of tasks handed to the dispatcher; with a cancelled batch it can
// exceed Total.
func (a *Aggregator) Summarize(submitted int, elapsed time.Duration) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Submitted:    submitted,
		Counts:       make(map[string]int64, len(a.counts)),
		Distribution: make(map[string]int64, len(a.dist)),
		Duration:     elapsed,
		MinLatency:   a.minLatency,
		MaxLatency:   a.maxLatency,
	}
	for kind, n := range a.counts {
		s.Counts[kind.String()] = n
		s.Total += n
	}
	for key, n := range a.dist {
		s.Distribution[key] = n
	}

	if s.Total > 0 {
		s.MeanLatency = time.Duration(int64(a.sumLatency) / s.Total)
	}
	if a.hist.TotalCount() > 0 {
		s.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		s.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		s.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 && s.Total > 0 {
		s.RequestsPerSec = float64(s.Total) / elapsed.Seconds()
	}

	s.DurationMs = float64(elapsed) / float64(time.Millisecond)
	s.MinLatencyMs = float64(s.MinLatency) / float64(time.Millisecond)
	s.MaxLatencyMs = float64(s.MaxLatency) / float64(time.Millisecond)
	s.MeanLatencyMs = float64(s.MeanLatency) / float64(time.Millisecond)
	s.P50LatencyMs = float64(s.P50Latency) / float64(time.Millisecond)
	s.P90LatencyMs = float64(s.P90Latency) / float64(time.Millisecond)
	s.P99LatencyMs = float64(s.P99Latency) / float64(time.Millisecond)

	return s
}
