// Package metrics records remote-call and file counters for a review run and
// writes them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder owns a private registry so several runs (and tests) never collide
// on the global one.
type Recorder struct {
	registry *prometheus.Registry

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	files    *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewlens_remote_calls_total",
				Help: "Remote text-analysis calls by provider, operation and outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviewlens_remote_call_duration_seconds",
				Help:    "Time spent waiting on the text-analysis service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewlens_files_total",
				Help: "Review files by processing outcome",
			},
			[]string{"outcome"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reviewlens_last_run_timestamp_seconds",
			Help: "Unix time the last batch run finished",
		}),
	}
	r.registry.MustRegister(r.calls, r.duration, r.files, r.lastRun)
	return r
}

// ObserveCall records one remote call.
func (r *Recorder) ObserveCall(provider, operation string, took time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	r.calls.WithLabelValues(provider, operation, outcome).Inc()
	r.duration.WithLabelValues(provider, operation).Observe(took.Seconds())
}

// FileDone records a processed (or failed) review file.
func (r *Recorder) FileDone(err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	r.files.WithLabelValues(outcome).Inc()
}

// RunFinished stamps the end of a batch run.
func (r *Recorder) RunFinished(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
