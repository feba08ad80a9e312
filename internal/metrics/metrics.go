// Package metrics exposes Atlas's Prometheus collectors: job throughput,
// compute-gate contention, and machine counts by provider.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_jobs_pushed_total",
			Help: "Total number of jobs pushed by job type",
		},
		[]string{"job_type"},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_jobs_completed_total",
			Help: "Total number of jobs completed by job type",
		},
		[]string{"job_type"},
	)

	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_jobs_failed_total",
			Help: "Total number of jobs failed by job type",
		},
		[]string{"job_type"},
	)

	MachinesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atlas_machines_total",
			Help: "Total number of known machines by provider",
		},
		[]string{"provider"},
	)

	ComputeGateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_compute_gate_wait_seconds",
			Help:    "Time a tile job spent waiting for the per-machine compute gate",
			Buckets: prometheus.DefBuckets,
		},
	)

	TileStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_tile_stage_duration_seconds",
			Help:    "Duration of a tile job stage (download, compute, assets, upload)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(JobsPushedTotal)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(JobsFailedTotal)
	prometheus.MustRegister(MachinesTotal)
	prometheus.MustRegister(ComputeGateWaitSeconds)
	prometheus.MustRegister(TileStageDuration)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration against a histogram.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
