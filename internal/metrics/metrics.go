// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crewsync"

// Cycle outcomes recorded on CyclesTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal       *prometheus.CounterVec
	SkippedSyncs      prometheus.Counter
	FetchFailures     prometheus.Counter
	DecodeFailures    prometheus.Counter
	CacheSaveFailures prometheus.Counter
	BudgetExpired     prometheus.Counter
	CycleDuration     prometheus.Histogram
	PendingChanges    prometheus.Gauge
	LastSuccess       prometheus.Gauge
}

// New creates the metric set on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	register := func(c prometheus.Collector) {
		reg.MustRegister(c)
	}

	m := &Metrics{
		registry: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Completed sync cycles by outcome",
		}, []string{"outcome"}),
		SkippedSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_skipped_total",
			Help:      "Sync requests dropped because a cycle was already in flight",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Schedule fetches that failed",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Schedule responses that matched no accepted shape",
		}),
		CacheSaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_save_failures_total",
			Help:      "Snapshot cache writes that failed",
		}),
		BudgetExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_budget_expired_total",
			Help:      "Background syncs that hit their time budget",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Time taken by one sync cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		PendingChanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_changes",
			Help:      "Changes detected on the tracked day by the latest cycle",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that used fetched data",
		}),
	}

	register(m.CyclesTotal)
	register(m.SkippedSyncs)
	register(m.FetchFailures)
	register(m.DecodeFailures)
	register(m.CacheSaveFailures)
	register(m.BudgetExpired)
	register(m.CycleDuration)
	register(m.PendingChanges)
	register(m.LastSuccess)
	register(collectors.NewGoCollector())
	return m
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(outcome string, took time.Duration, changes int, at time.Time) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(took.Seconds())
	m.PendingChanges.Set(float64(changes))
	if outcome == OutcomeSuccess {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
