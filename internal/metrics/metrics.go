// Package metrics counts what a synchronization run did to the CI server.
//
// Every run owns its registry, so several runs in one process never share
// counters. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job kinds used as label values.
const (
	KindBuildconf = "buildconf"
	KindPackage   = "package"
)

// Metrics holds the collectors of a run.
type Metrics struct {
	registry *prometheus.Registry

	jobs      *prometheus.CounterVec
	triggered prometheus.Counter
	deleted   prometheus.Counter
	failures  *prometheus.CounterVec
	duration  prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsync_jobs_reconciled_total",
				Help: "Number of jobs pushed to the CI server, by kind and action.",
			},
			[]string{"kind", "action"},
		),
		triggered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jobsync_jobs_triggered_total",
				Help: "Number of builds queued on the CI server.",
			},
		),
		deleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jobsync_jobs_pruned_total",
				Help: "Number of stale jobs deleted from the CI server.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsync_failures_total",
				Help: "Number of failed operations, by stage.",
			},
			[]string{"stage"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobsync_run_duration_seconds",
				Help:    "Time taken by a synchronization run.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(m.jobs, m.triggered, m.deleted, m.failures, m.duration)
	return m
}

// Registry exposes the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// JobReconciled records a created, updated or recreated job.
func (m *Metrics) JobReconciled(kind, action string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, action).Inc()
}

// JobTriggered records a queued build.
func (m *Metrics) JobTriggered() {
	if m == nil {
		return
	}
	m.triggered.Inc()
}

// JobPruned records a deleted stale job.
func (m *Metrics) JobPruned() {
	if m == nil {
		return
	}
	m.deleted.Inc()
}

// Failure records a failed operation of the given stage.
func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

// ObserveRun records the duration of a run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// Push sends the collected metrics to a Prometheus Pushgateway, replacing
// the metrics previously pushed under the same job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
