package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio_cms"

// Recorder holds the trash lifecycle collectors on a private registry.
type Recorder struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	sweepRuns      *prometheus.CounterVec
	sweepPurged    prometheus.Counter
	sweepFailed    prometheus.Counter
	sweepDuration  prometheus.Histogram
	requestLatency *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trash",
			Name:      "operations_total",
			Help:      "Trash lifecycle operations by action, entity type and result.",
		}, []string{"action", "entity_type", "result"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Expiry sweep runs by trigger and final status.",
		}, []string{"trigger", "status"}),
		sweepPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "purged_total",
			Help:      "Trash records purged by the expiry sweeper.",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "failed_total",
			Help:      "Trash records the expiry sweeper could not purge.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of expiry sweep runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.registry.MustRegister(
		r.operations,
		r.sweepRuns,
		r.sweepPurged,
		r.sweepFailed,
		r.sweepDuration,
		r.requestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// ObserveOperation counts one soft-delete, restore or purge. A nil Recorder is a no-op.
func (r *Recorder) ObserveOperation(action string, entityType string, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(action, entityType, result).Inc()
}

func (r *Recorder) ObserveSweep(trigger string, status string, purged int, failed int, took time.Duration) {
	if r == nil {
		return
	}
	r.sweepRuns.WithLabelValues(trigger, status).Inc()
	r.sweepPurged.Add(float64(purged))
	r.sweepFailed.Add(float64(failed))
	r.sweepDuration.Observe(took.Seconds())
}

func (r *Recorder) ObserveRequest(method string, route string, status string, took time.Duration) {
	if r == nil {
		return
	}
	r.requestLatency.WithLabelValues(method, route, status).Observe(took.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
