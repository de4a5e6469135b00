// Package citevet provides a toolkit for validating academic citations
// against pluggable citation-format strategies, with format detection,
// confidence calibration, and aggregate statistics.
//
// # Philosophy: Pluggable Validation Core
//
// citevet is a validation core with three independent concerns:
//
// Registry - format strategies as plugins:
//   - Registration: typed descriptors, factory origin gating, priorities
//   - Validation: concurrent fan-out over registered formats
//   - Detection: weighted scoring with a bounded result cache
//   - Statistics: bounded running aggregates per format and error pattern
//
// Calibration - trustworthy confidence scores:
//   - Methods: temperature_scaling, platt_scaling, bayesian, histogram,
//     ensemble, simple
//   - Evidence quality folds external signal strength into each score
//   - Feedback history refits learned parameters over time
//
// Infrastructure - the pieces both lean on:
//   - Bounded generic cache (LRU + TTL), worker pool, backoff retry
//   - Classified errors, Prometheus metrics, layered configuration
//
// citevet MUST NOT contain:
//   - Citation-style rules for a specific publisher or journal
//   - Source fetching, DOI resolution, or reference-manager integration
//   - Assumptions about where strategies come from beyond the origin gate
//
// Style-specific validators belong in their own modules; they plug in
// through the strategy.FormatStrategy interface.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│         Strategy Registry           │  Registration gate,
//	│ (register, validate, detect, stats) │  lifecycle, statistics
//	└─────────────────────────────────────┘
//	           ↓ fans out to
//	┌─────────────────────────────────────┐
//	│         Format Strategies           │  APA, MLA, and any
//	│  (pluggable Validate per format)    │  registered custom format
//	└─────────────────────────────────────┘
//	           ↓ raw confidence feeds
//	┌─────────────────────────────────────┐
//	│       Confidence Calibration        │  Raw score + evidence
//	│  (learned parameters, feedback)     │  quality → calibrated score
//	└─────────────────────────────────────┘
//
// Every registered strategy validates a batch independently under a
// concurrency limit; one slow or panicking strategy degrades its own
// result, never the batch. Detection scores each format as a weighted
// blend of confidence, priority, and historical success rate, and caches
// the winner keyed by a digest of the batch prefix.
//
// # Packages
//
// Core:
//   - strategy: format registry, validation fan-out, detection, statistics
//   - calibration: confidence calibration engine with feedback history
//
// Infrastructure:
//   - config: layered configuration (defaults, files, environment)
//   - metric: Prometheus metrics registry
//   - errors: classified error handling
//   - pkg/cache: bounded generic LRU/TTL cache
//   - pkg/worker: bounded generic worker pool
//   - pkg/retry: exponential backoff for transient failures
//
// Testing:
//   - testutil: stub strategies and batch builders for tests
//
// # Usage Patterns
//
// Basic registry setup:
//
//	registry, _ := strategy.New(strategy.Config{},
//	    strategy.WithLogger(logger),
//	    strategy.WithMetrics(metricsRegistry))
//
//	registry.Register(strategy.NewRegistration(
//	    strategy.Descriptor{Name: "apa", Version: "7"},
//	    func() (strategy.FormatStrategy, error) { return NewAPA(), nil },
//	))
//
//	results := registry.ValidateAll(ctx, citations)
//	format, ok := registry.DetectFormat(ctx, citations)
//
// Calibrating a raw score:
//
//	calibrator, _ := calibration.New(calibration.DefaultConfig())
//	result := calibrator.Calibrate(calibration.Request{
//	    RawConfidence:   0.92,
//	    FormatName:      "apa",
//	    EvidenceQuality: 0.8,
//	})
//
// Custom format strategy:
//
//	type chicago struct{}
//
//	func (chicago) FormatName() string          { return "chicago" }
//	func (chicago) FormatVersion() string       { return "17" }
//	func (chicago) SupportedTypes() []string    { return []string{"book"} }
//	func (chicago) Validate(ctx context.Context, citations []string) (*strategy.Result, error) {
//	    // format-specific checks
//	    return &strategy.Result{}, nil
//	}
//
// # Design Principles
//
// Separation of Concerns:
//   - Format rules ≠ registry mechanics
//   - Raw scores ≠ calibrated confidence
//   - Statistics recording ≠ structural registry state
//
// Fail Soft:
//   - Strategy errors and panics isolate into degraded results
//   - Registration rejections log and return, never abort the caller
//   - Cache and statistics cleanup is best-effort
//
// Testability:
//   - Explicit dependencies (no globals, no background goroutines)
//   - Strategies stubbed through a single small interface
//   - Deterministic ordering wherever results are ranked
//
// Bounded Everything:
//   - Caches, statistics tables, work queues, and feedback history all
//     carry explicit caps with deterministic trimming
//
// # Binary
//
// The citevet command validates JSONL citation batches from a file or
// stdin and prints a JSON statistics summary:
//
//	# Validate batches against every enabled format
//	citevet --input=citations.jsonl
//
//	# Detect the best-matching format per batch
//	citevet --detect --input=citations.jsonl
//
//	# Validate a configuration file and exit
//	citevet --config=/etc/citevet/config.yaml --validate
//
// The binary registers two built-in sample strategies (apa, mla); real
// deployments register their own formats the same way.
package citevet
