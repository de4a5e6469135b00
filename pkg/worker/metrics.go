package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/citevet/citevet/metric"
)

// poolMetrics holds Prometheus metrics for worker pool activity.
type poolMetrics struct {
	queueDepth  prometheus.Gauge
	utilization prometheus.Gauge

	submitted prometheus.Counter
	processed prometheus.Counter
	failed    prometheus.Counter
	dropped   prometheus.Counter

	jobDuration *prometheus.HistogramVec
}

// newPoolMetrics creates and registers pool metrics with the provided registry.
func newPoolMetrics(registry *metric.MetricsRegistry, prefix string) (*poolMetrics, error) {
	labels := prometheus.Labels{"component": prefix}

	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "queue_depth",
			ConstLabels: labels,
			Help:        "Current number of queued items",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "utilization",
			ConstLabels: labels,
			Help:        "Queue utilization as a fraction of capacity (0-1)",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "submitted_total",
			ConstLabels: labels,
			Help:        "Total items accepted into the queue",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "processed_total",
			ConstLabels: labels,
			Help:        "Total items processed, including failures",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "failed_total",
			ConstLabels: labels,
			Help:        "Total items whose handler returned an error",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "dropped_total",
			ConstLabels: labels,
			Help:        "Total items dropped because the queue was full",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "citevet",
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			ConstLabels: labels,
			Help:        "Time spent processing a single item",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"status"}),
	}

	if err := registry.RegisterGauge(prefix, "worker_queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "worker_utilization", m.utilization); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_submitted", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_processed", m.processed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_failed", m.failed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_dropped", m.dropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(prefix, "worker_job_duration", m.jobDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordSubmitted counts an accepted item and refreshes the depth gauge.
func (m *poolMetrics) recordSubmitted(depth int) {
	m.submitted.Inc()
	m.queueDepth.Set(float64(depth))
}

// recordDropped counts an item rejected by a full queue.
func (m *poolMetrics) recordDropped() {
	m.dropped.Inc()
}

// recordJob counts a completed attempt and observes its duration.
func (m *poolMetrics) recordJob(status string, elapsed time.Duration) {
	m.processed.Inc()
	if status == "error" {
		m.failed.Inc()
	}
	m.jobDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// updateQueue refreshes the depth and utilization gauges.
func (m *poolMetrics) updateQueue(depth, capacity int) {
	m.queueDepth.Set(float64(depth))
	if capacity > 0 {
		m.utilization.Set(float64(depth) / float64(capacity))
	}
}
