// Package prom exposes batch progress as Prometheus metrics for long probe
// runs.
package prom

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/outboundlb/proxyprobe/internal/probe"
	"github.com/outboundlb/proxyprobe/internal/transport"
)

var (
	// OutcomesTotal counts classified outcomes by kind.
	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxyprobe_outcomes_total",
		Help: "Total number of classified probe outcomes",
	}, []string{"kind"})

	// DistributionTotal counts successful responses per backend identity.
	DistributionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxyprobe_distribution_total",
		Help: "Successful responses per backend distribution key",
	}, []string{"key"})

	// RequestDuration tracks per-request duration in seconds.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proxyprobe_request_duration_seconds",
		Help:    "Probe request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// InflightRequests gauges requests currently on the wire.
	InflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxyprobe_inflight_requests",
		Help: "Number of probe requests currently in flight",
	})
)

// WrapTransport tracks in-flight requests around the inner transport.
func WrapTransport(inner transport.Transport) transport.Transport {
	return transport.Func(func(ctx context.Context, req transport.Request) transport.Result {
		InflightRequests.Inc()
		defer InflightRequests.Dec()
		return inner.Issue(ctx, req)
	})
}

// Recorder feeds outcomes into the package metrics. It implements
// probe.Recorder.
type Recorder struct{}

// Record updates the outcome counters for one outcome.
func (Recorder) Record(out probe.Outcome) {
	OutcomesTotal.WithLabelValues(out.Kind.String()).Inc()
	if out.Kind == probe.Success {
		DistributionTotal.WithLabelValues(out.DistributionKey).Inc()
	}
	if out.Elapsed > 0 {
		RequestDuration.Observe(out.Elapsed.Seconds())
	}
}
