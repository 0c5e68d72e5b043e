// Package metrics records counters for one pipeline run. The process exits
// after each batch, so instead of serving /metrics the registry can be written
// to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paint_news"

// Stage labels for ArticlesTotal.
const (
	StageFetched   = "fetched"
	StageAccepted  = "accepted"
	StageRejected  = "rejected"
	StageDuplicate = "duplicate"
	StageReturned  = "returned"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
)

// Metrics bundles the collectors of a run with their own registry.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal       *prometheus.CounterVec
	ArticlesTotal      *prometheus.CounterVec
	TranslationsTotal  *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	LastRun            prometheus.Gauge
	RunDuration        prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Search queries issued, by outcome.",
		}, []string{"outcome"}),
		ArticlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles seen at each collection stage.",
		}, []string{"stage"}),
		TranslationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Article translations, by outcome.",
		}, []string{"outcome"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications sent, by publisher and outcome.",
		}, []string{"publisher", "outcome"}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	m.registry.MustRegister(
		m.QueriesTotal,
		m.ArticlesTotal,
		m.TranslationsTotal,
		m.NotificationsTotal,
		m.LastRun,
		m.RunDuration,
	)
	return m
}

// Query records the outcome of one search request.
func (m *Metrics) Query(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.QueriesTotal.WithLabelValues(OutcomeSuccess).Inc()
		return
	}
	m.QueriesTotal.WithLabelValues(OutcomeFailure).Inc()
}

// Articles adds n to the counter of the given stage.
func (m *Metrics) Articles(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ArticlesTotal.WithLabelValues(stage).Add(float64(n))
}

// Translation records one translation outcome.
func (m *Metrics) Translation(outcome string) {
	if m == nil {
		return
	}
	m.TranslationsTotal.WithLabelValues(outcome).Inc()
}

// Notification records one publisher result.
func (m *Metrics) Notification(publisher string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.NotificationsTotal.WithLabelValues(publisher, outcome).Inc()
}

// RunFinished stamps the completion time and duration of a run.
func (m *Metrics) RunFinished(finished time.Time, took time.Duration) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(finished.Unix()))
	m.RunDuration.Set(took.Seconds())
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
