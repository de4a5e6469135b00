package calibration

import (
	"log/slog"

	"github.com/citevet/citevet/metric"
)

// Option configures a Calibrator.
type Option func(*calibratorOptions)

// calibratorOptions holds option state during construction.
type calibratorOptions struct {
	logger  *slog.Logger
	metrics *metric.Metrics
}

// WithLogger sets the logger used for refit events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *calibratorOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus recording of calibrations and the shift
// each one applied.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *calibratorOptions) {
		o.metrics = m
	}
}

// applyOptions applies all options and returns the resulting configuration.
func applyOptions(options ...Option) *calibratorOptions {
	opts := &calibratorOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
