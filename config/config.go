package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/citevet/citevet/calibration"
	"github.com/citevet/citevet/errors"
	"github.com/citevet/citevet/pkg/cache"
	"github.com/citevet/citevet/strategy"
)

// Config is the root configuration document for the validation toolkit.
// Sections map one-to-one onto the packages they configure; assembly
// methods compose them into the per-package config types.
type Config struct {
	Logging     LoggingConfig      `json:"logging" yaml:"logging"`
	Registry    RegistryConfig     `json:"registry" yaml:"registry"`
	Cache       cache.Config       `json:"cache" yaml:"cache"`
	Statistics  StatisticsConfig   `json:"statistics" yaml:"statistics"`
	Calibration calibration.Config `json:"calibration" yaml:"calibration"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format"`
}

// RegistryConfig holds detection and fan-out settings for the strategy
// registry. Cache and statistics bounds live in their own sections.
type RegistryConfig struct {
	DetectionThreshold       float64  `json:"detection_threshold" yaml:"detection_threshold"`
	DetectionPrefix          int      `json:"detection_prefix" yaml:"detection_prefix"`
	DetectionFullBatch       bool     `json:"detection_full_batch" yaml:"detection_full_batch"`
	TrustedPrefixes          []string `json:"trusted_prefixes,omitempty" yaml:"trusted_prefixes,omitempty"`
	MaxConcurrentValidations int      `json:"max_concurrent_validations" yaml:"max_concurrent_validations"`
}

// StatisticsConfig bounds the registry's statistics tables.
type StatisticsConfig struct {
	MaxFormats    int     `json:"max_formats" yaml:"max_formats"`
	MaxPatterns   int     `json:"max_patterns" yaml:"max_patterns"`
	CleanupFactor float64 `json:"cleanup_factor" yaml:"cleanup_factor"`
}

// DefaultConfig returns the fully-populated default document. Loaders start
// from it so partial files only override what they mention.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Registry: RegistryConfig{
			DetectionThreshold:       strategy.DefaultDetectionThreshold,
			DetectionPrefix:          strategy.DefaultDetectionPrefix,
			MaxConcurrentValidations: strategy.DefaultMaxConcurrentValidations,
		},
		Cache: cache.DefaultConfig(),
		Statistics: StatisticsConfig{
			MaxFormats:    strategy.DefaultMaxFormatEntries,
			MaxPatterns:   strategy.DefaultMaxErrorPatterns,
			CleanupFactor: strategy.DefaultCleanupFactor,
		},
		Calibration: calibration.DefaultConfig(),
	}
}

// StrategyConfig assembles the registry, cache, and statistics sections into
// the strategy package's configuration.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		CacheSize:                c.Cache.MaxSize,
		CacheTTL:                 c.Cache.TTL,
		DisableCache:             !c.Cache.Enabled,
		DetectionThreshold:       c.Registry.DetectionThreshold,
		DetectionPrefix:          c.Registry.DetectionPrefix,
		DetectionFullBatch:       c.Registry.DetectionFullBatch,
		MaxFormatEntries:         c.Statistics.MaxFormats,
		MaxErrorPatterns:         c.Statistics.MaxPatterns,
		CleanupFactor:            c.Statistics.CleanupFactor,
		TrustedPrefixes:          slices.Clone(c.Registry.TrustedPrefixes),
		MaxConcurrentValidations: c.Registry.MaxConcurrentValidations,
	}
}

// Validate checks the document section by section. It expects a populated
// document; load paths populate from DefaultConfig before validating.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.StrategyConfig().Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

// Validate checks the logging section.
func (l LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, l.Level),
			"Config", "Validate", "logging validation")
	}
	switch l.Format {
	case "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, l.Format),
			"Config", "Validate", "logging validation")
	}
	return nil
}

// Clone creates a deep copy of the configuration via a JSON round trip.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns an indented JSON rendering of the document.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SafeConfig provides thread-safe access to a configuration that may be
// swapped at runtime.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps a configuration for concurrent access. A nil config
// starts from the defaults.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validating it.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil config", errors.ErrInvalidConfig),
			"SafeConfig", "Update", "config check")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "SafeConfig", "Update", "config validation")
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
