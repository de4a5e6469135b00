// Package config loads and validates the toolkit's configuration document.
//
// Configuration comes from three layers, last wins: built-in defaults, one or
// more JSON or YAML files, and CITEVET_* environment variables.
//
// # Core Components
//
// Config: the root document with sections for logging, the strategy registry,
// the detection cache, statistics bounds, and confidence calibration. Assembly
// methods such as StrategyConfig compose sections into the config types the
// individual packages consume.
//
// SafeConfig: thread-safe wrapper using RWMutex and deep cloning so a host
// application can swap configuration at runtime without torn reads.
//
// Loader: layer merging plus environment overrides. Every file is validated
// against an embedded JSON schema before merging, so typos in key names fail
// loudly instead of being silently ignored.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("citevet.yaml")
//	loader.AddLayer("citevet.local.yaml") // overrides the base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry, err := strategy.New(cfg.StrategyConfig())
//
// # Environment Variable Overrides
//
// Overrides apply after all file layers:
//
//	export CITEVET_LOG_LEVEL=debug
//	export CITEVET_CACHE_TTL=10m
//	export CITEVET_DETECTION_THRESHOLD=0.6
//	export CITEVET_TRUSTED_PREFIXES="github.com/example/styles,github.com/example/extra"
//
// A malformed override value fails the load; overrides are never silently
// dropped.
//
// # Layer Merging
//
// Layers merge field by field with last-wins semantics:
//
//	base.yaml:
//	  logging: {level: debug}
//	  cache: {max_size: 500}
//
//	production.yaml:
//	  logging: {level: warn}
//
//	Result:
//	  logging: {level: warn}
//	  cache: {max_size: 500}
//
// # Security
//
// Documents are bounded before parsing:
//   - file size cap (1MB) to prevent memory exhaustion
//   - nesting depth cap (32 levels) for both JSON and YAML
//   - path validation: relative paths must stay inside the working directory
//   - regular file checks (no directories or device files)
//   - environment override values are length-capped and null-byte checked
package config
