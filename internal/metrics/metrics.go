// Package metrics records extraction counters in a private Prometheus
// registry and optionally pushes them to a Pushgateway when a run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/nhle/jira-metrics/internal/extract"
	"github.com/nhle/jira-metrics/internal/model"
)

const (
	namespace = "jirametrics"
	jobName   = "jira_metrics_extract"
)

// Recorder collects per-run extraction metrics. It implements
// extract.Observer.
type Recorder struct {
	registry *prometheus.Registry

	pages       prometheus.Counter
	malformed   prometheus.Counter
	items       prometheus.Counter
	pageLatency prometheus.Histogram
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	runs        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.pages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Search result pages fetched",
	})
	r.malformed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_malformed_total",
		Help:      "Pages skipped because the response had no issues list",
	})
	r.items = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "work_items_total",
		Help:      "Work items extracted",
	})
	r.pageLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "page_fetch_seconds",
		Help:      "Time spent fetching one page",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	r.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last run",
	})
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})
	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Runs by final status",
	}, []string{"status"})

	r.registry.MustRegister(
		r.pages, r.malformed, r.items, r.pageLatency,
		r.duration, r.lastSuccess, r.runs,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PageFetched implements extract.Observer.
func (r *Recorder) PageFetched(ev extract.PageEvent) {
	r.pages.Inc()
	if ev.Malformed {
		r.malformed.Inc()
	}
	r.items.Add(float64(ev.Added))
	r.pageLatency.Observe(ev.Elapsed.Seconds())
}

// Finish records the outcome of the run.
func (r *Recorder) Finish(status string, elapsed time.Duration, at time.Time) {
	r.runs.WithLabelValues(status).Inc()
	r.duration.Set(elapsed.Seconds())
	if status == model.RunStatusSucceeded {
		r.lastSuccess.Set(float64(at.Unix()))
	}
}

// Push sends the registry to the Pushgateway at url, grouped by instance.
func (r *Recorder) Push(ctx context.Context, url, instance string) error {
	p := push.New(url, jobName).Gatherer(r.registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
