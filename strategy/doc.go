// Package strategy implements the pluggable citation-format validation
// registry at the core of the toolkit.
//
// # Overview
//
// A Registry maps format names to externally supplied FormatStrategy
// implementations. Callers register strategies through a security gate,
// look them up by name, validate citation batches against one or many
// formats concurrently, and auto-detect the best-matching format. The
// registry tracks validation statistics and memoizes detection results in
// a bounded cache.
//
// # Registration Gate
//
// Registration is fail-soft: Register returns a boolean and logs rejection
// reasons through a rate-limited security logger instead of returning
// errors; RegisterWithReason exposes the classified reason. The gate
// rejects, in order: nil factories, names that are not plain identifiers,
// incomplete descriptors, factories declared in untrusted packages, and
// priorities outside [0,100]. The origin check resolves the factory's
// declaring package at runtime and applies a deny set of dangerous path
// components followed by an allow list of trusted prefixes, rejecting by
// default. Strategies declare their metadata statically in a Descriptor;
// registration never constructs the strategy, so a hostile factory gains
// nothing by being registered and construction failures surface at lookup.
//
// # Validation and Detection
//
// ValidateAll snapshots the target strategies under the lock, releases it,
// and fans out one goroutine per format bounded by
// MaxConcurrentValidations. A strategy that errors or panics produces a
// degraded result for its format only; the batch never aborts. DetectFormat
// validates the batch against every enabled strategy and scores each as
//
//	0.6·confidence + 0.2·(priority/100) + 0.2·success_rate
//
// returning and caching the best format only when its score exceeds the
// detection threshold. The cache key digests the first DetectionPrefix
// citations, so batches sharing a prefix share a detection; set
// DetectionFullBatch to key on entire batches instead.
//
// # Quick Start
//
//	registry, err := strategy.New(strategy.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	registry.Register(strategy.NewRegistration(
//		strategy.Descriptor{
//			Name:           "apa",
//			Version:        "7th",
//			SupportedTypes: []string{"article", "book"},
//		},
//		func() (strategy.FormatStrategy, error) { return apa.New(), nil },
//	))
//
//	results := registry.ValidateAll(ctx, citations)
//	name, ok := registry.DetectFormat(ctx, citations)
//
// # Concurrency
//
// All public methods are safe for concurrent use. A structural RWMutex
// guards the strategy table and all detection cache mutation; statistics
// live behind their own lock so recording outcomes does not contend with
// structural changes. The structural lock may be taken before the
// statistics lock, never after it, and no strategy Validate call ever runs
// under either. After any interleaving of registrations, unregistrations,
// and validations, successful + failed == total holds exactly.
package strategy
