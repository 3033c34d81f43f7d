package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "windshadow"

// Metrics holds the Prometheus counters, histograms, and gauges for the calendar engine.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsFinished  *prometheus.CounterVec // labels: status={done,error}
	JobsRunning   prometheus.Gauge

	// Simulation metrics.
	RunDuration        prometheus.Histogram
	TimestepsProcessed prometheus.Counter
	ShadowHits         prometheus.Counter

	TurbineRowsParsed prometheus.Counter
	FrameCache        *prometheus.CounterVec // labels: result={hit,miss}
	JobEvents         *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.JobsSubmitted,
		m.JobsFinished,
		m.JobsRunning,
		m.RunDuration,
		m.TimestepsProcessed,
		m.ShadowHits,
		m.TurbineRowsParsed,
		m.FrameCache,
		m.JobEvents,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total calendar runs accepted by the API.",
		}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Calendar runs that reached a terminal status.",
		}, []string{"status"}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Calendar runs currently executing.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calendar_run_duration_seconds",
			Help:      "Wall time of a complete calendar run including output writing.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		TimestepsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timesteps_processed_total",
			Help:      "Simulation timesteps evaluated across all runs.",
		}),
		ShadowHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shadow_hits_total",
			Help:      "Shadow footprints found intersecting an area of interest.",
		}),
		TurbineRowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turbine_csv_rows_parsed_total",
			Help:      "Turbine records produced by CSV imports.",
		}),
		FrameCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_cache_total",
			Help:      "Rendered frame cache lookups by result.",
		}, []string{"result"}),
		JobEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_events_published_total",
			Help:      "Job completion events published, by outcome.",
		}, []string{"outcome"}),
	}
}
