// Package metrics exposes pop/push counters and pop-latency
// percentiles through prometheus client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Stats is a small bundle of counters and a latency summary for one
// queue instance. The zero value is not usable; construct with New.
type Stats struct {
	Pushed     prometheus.Counter
	Popped     prometheus.Counter
	PopLatency prometheus.Summary
	registry   *prometheus.Registry
}

// New builds a fresh registry and the metrics registered against it.
// Each Stats gets its own registry rather than sharing
// prometheus.DefaultRegisterer, so that constructing more than one
// Stats in the same process (as the test suite does) never collides on
// duplicate metric names.
func New() *Stats {
	reg := prometheus.NewRegistry()

	s := &Stats{
		registry: reg,
		Pushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_pushed_total",
			Help: "Total number of values pushed onto the queue.",
		}),
		Popped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_popped_total",
			Help: "Total number of values popped from the queue.",
		}),
		PopLatency: prometheus.NewSummary(prometheus.SummaryOpts{
			Name: "pq_pop_latency_seconds",
			Help: "Observed latency of Pop calls.",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		}),
	}

	reg.MustRegister(s.Pushed, s.Popped, s.PopLatency)
	return s
}

// Percentiles reads back the summary's currently tracked quantiles,
// for printing in cmd/pqdemo without standing up an HTTP scrape
// endpoint.
func (s *Stats) Percentiles() map[float64]float64 {
	m := &dto.Metric{}
	if err := s.PopLatency.Write(m); err != nil {
		return nil
	}

	out := make(map[float64]float64)
	for _, q := range m.GetSummary().GetQuantile() {
		out[q.GetQuantile()] = q.GetValue()
	}
	return out
}

// Gatherer exposes the underlying registry for callers that do want an
// HTTP /metrics endpoint (e.g. via promhttp.HandlerFor). cmd/pqdemo
// does not serve one; it prints Percentiles instead.
func (s *Stats) Gatherer() prometheus.Gatherer {
	return s.registry
}
