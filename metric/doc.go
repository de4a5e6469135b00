// Package metric provides Prometheus-based metrics collection for CiteVet
// observability.
//
// The package offers a centralized metrics registry managing both core toolkit
// metrics (registrations, validations, detections, calibrations) and custom
// component-specific metrics. The toolkit is a library: it never opens a
// listener. Embedding applications mount Handler() on their own mux, and the
// CLI dumps metrics with WriteText() after a batch run.
//
// # Architecture
//
// The package follows a two-layer design:
//
//  1. Core Metrics: toolkit-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for component-specific metrics
//     (MetricsRegistrar interface)
//
// This separates infrastructure concerns (core metrics) from per-component
// concerns (cache and worker pool metrics) while keeping a single gatherable
// registry.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	// Record core toolkit metrics
//	core := registry.CoreMetrics()
//	core.RecordRegistration("accepted")
//	core.RecordValidation("apa7", "valid")
//	core.RecordValidationDuration("apa7", 12*time.Millisecond)
//
//	// Expose from an embedding application
//	mux.Handle("/metrics", registry.Handler())
//
//	// Or dump once, e.g. at the end of a CLI run
//	_ = registry.WriteText(os.Stdout)
//
// # Component-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar interface:
//
//	hits := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "detection_cache_hits_total",
//	    Help: "Total detection cache hits",
//	})
//	err := registry.RegisterCounter("detection-cache", "hits_total", hits)
//
// Duplicate registrations are rejected with a classified Invalid error, both
// when tracked locally (same component/metric key) and when Prometheus itself
// reports a collision.
//
// # Metric Names
//
// All core metrics use the namespace "citevet":
//
//   - citevet_registry_strategies
//   - citevet_registry_registrations_total{outcome="..."}
//   - citevet_validation_results_total{strategy="...",status="..."}
//   - citevet_validation_duration_seconds{strategy="..."}
//   - citevet_detection_results_total{outcome="..."}
//   - citevet_calibration_adjustments_total{method="..."}
//   - citevet_calibration_shift{method="..."}
//   - citevet_errors_total{component="...",type="..."}
//
// Component-specific metrics use the name provided at registration.
//
// # Thread Safety
//
// All registry operations are thread-safe: registration methods use mutex
// protection and metric recording is lock-free (Prometheus guarantee).
// CoreMetrics() returns a shared instance safe for concurrent use.
package metric
