package strategy

import (
	"log/slog"

	"github.com/citevet/citevet/metric"
)

// Option configures a Registry.
type Option func(*registryOptions)

// registryOptions holds option state during construction.
type registryOptions struct {
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
}

// WithLogger sets the logger for registration, validation, and detection
// events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus recording. The registry publishes core
// toolkit metrics and registers the detection cache's counters under the
// given metrics registry.
func WithMetrics(m *metric.MetricsRegistry) Option {
	return func(o *registryOptions) {
		o.metrics = m
	}
}

// applyOptions applies all options and returns the resulting configuration.
func applyOptions(options ...Option) *registryOptions {
	opts := &registryOptions{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
