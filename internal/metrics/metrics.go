// Package metrics defines the prometheus collectors the apply run updates:
// how long materialization and the git round-trip take, how many services
// ended up installed, and how secret-sync attempts resolved. Nothing here
// is exported over HTTP since the generator is a one-shot CLI, not a
// long-running service — a caller that wants to scrape it can push these
// to a gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ServicesMaterialized = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridgehead_services_materialized_total",
			Help: "Number of services installed in the registry by the last apply run",
		},
	)

	ApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridgehead_apply_duration_seconds",
			Help:    "Wall-clock duration of a full apply run (load through commit)",
			Buckets: prometheus.DefBuckets,
		},
	)

	SecretSyncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridgehead_secret_sync_attempts_total",
			Help: "OIDC secret-sync attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	GitChangeDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridgehead_git_apply_changed_total",
			Help: "Number of apply runs that produced a non-empty commit",
		},
	)
)

// NewRegistry returns a dedicated collector registry rather than the global
// prometheus default, so a single process can construct more than one
// Engine in tests without double-registering collectors.
func NewRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(ServicesMaterialized, ApplyDuration, SecretSyncAttempts, GitChangeDetected)
	return r
}

// Timer returns a func that observes the elapsed time into h when called:
// start := metrics.Timer(h); defer start().
func Timer(h prometheus.Histogram) func() {
	start := time.Now()
	return func() { h.Observe(time.Since(start).Seconds()) }
}
