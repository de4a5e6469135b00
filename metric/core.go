package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all toolkit-level metrics (not strategy-specific)
type Metrics struct {
	// Registry metrics
	StrategiesRegistered prometheus.Gauge
	RegistrationsTotal   *prometheus.CounterVec

	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Detection metrics
	DetectionsTotal *prometheus.CounterVec

	// Calibration metrics
	CalibrationsTotal *prometheus.CounterVec
	CalibrationShift  *prometheus.HistogramVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all toolkit metrics
func NewMetrics() *Metrics {
	return &Metrics{
		StrategiesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "citevet",
				Subsystem: "registry",
				Name:      "strategies",
				Help:      "Number of currently registered validation strategies",
			},
		),

		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "citevet",
				Subsystem: "registry",
				Name:      "registrations_total",
				Help:      "Total number of registration attempts by outcome",
			},
			[]string{"outcome"},
		),

		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "citevet",
				Subsystem: "validation",
				Name:      "results_total",
				Help:      "Total number of validation runs by strategy and status",
			},
			[]string{"strategy", "status"},
		),

		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "citevet",
				Subsystem: "validation",
				Name:      "duration_seconds",
				Help:      "Validation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),

		DetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "citevet",
				Subsystem: "detection",
				Name:      "results_total",
				Help:      "Total number of format detection attempts by outcome",
			},
			[]string{"outcome"},
		),

		CalibrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "citevet",
				Subsystem: "calibration",
				Name:      "adjustments_total",
				Help:      "Total number of confidence calibrations by method",
			},
			[]string{"method"},
		),

		CalibrationShift: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "citevet",
				Subsystem: "calibration",
				Name:      "shift",
				Help:      "Absolute difference between raw and calibrated confidence",
				Buckets:   prometheus.LinearBuckets(0, 0.05, 11),
			},
			[]string{"method"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "citevet",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),
	}
}

// SetStrategies updates the registered-strategy gauge
func (c *Metrics) SetStrategies(count int) {
	c.StrategiesRegistered.Set(float64(count))
}

// RecordRegistration increments the registration counter for an outcome
func (c *Metrics) RecordRegistration(outcome string) {
	c.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidation increments the validation counter
func (c *Metrics) RecordValidation(strategy, status string) {
	c.ValidationsTotal.WithLabelValues(strategy, status).Inc()
}

// RecordValidationDuration records how long a validation run took
func (c *Metrics) RecordValidationDuration(strategy string, duration time.Duration) {
	c.ValidationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordDetection increments the detection counter for an outcome
func (c *Metrics) RecordDetection(outcome string) {
	c.DetectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCalibration records one calibration and the shift it applied
func (c *Metrics) RecordCalibration(method string, shift float64) {
	c.CalibrationsTotal.WithLabelValues(method).Inc()
	if shift < 0 {
		shift = -shift
	}
	c.CalibrationShift.WithLabelValues(method).Observe(shift)
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
