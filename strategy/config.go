package strategy

import (
	"time"

	"github.com/citevet/citevet/errors"
)

// Config controls registry behavior. Zero-valued fields are filled with
// defaults at construction.
type Config struct {
	// CacheSize bounds the detection cache. 0 means the default; turn
	// caching off with DisableCache, not a zero size.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL expires detection cache entries. 0 means no expiry.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// DisableCache turns detection caching off entirely.
	DisableCache bool `json:"disable_cache" yaml:"disable_cache"`

	// DetectionThreshold is the minimum combined score a format must reach
	// for DetectFormat to report it.
	DetectionThreshold float64 `json:"detection_threshold" yaml:"detection_threshold"`

	// DetectionPrefix is how many leading citations feed the detection
	// cache key. Distinct batches sharing this prefix share a cache slot.
	DetectionPrefix int `json:"detection_prefix" yaml:"detection_prefix"`

	// DetectionFullBatch keys the detection cache on the entire batch
	// instead of the prefix, trading cache reuse for exactness.
	DetectionFullBatch bool `json:"detection_full_batch" yaml:"detection_full_batch"`

	// MaxFormatEntries bounds the format distribution table.
	MaxFormatEntries int `json:"max_format_entries" yaml:"max_format_entries"`

	// MaxErrorPatterns bounds the error pattern table.
	MaxErrorPatterns int `json:"max_error_patterns" yaml:"max_error_patterns"`

	// CleanupFactor is the fraction of a table's cap retained by a cleanup
	// pass, leaving headroom before the next one.
	CleanupFactor float64 `json:"cleanup_factor" yaml:"cleanup_factor"`

	// TrustedPrefixes extends the origin allow list with additional package
	// path prefixes whose factories may register.
	TrustedPrefixes []string `json:"trusted_prefixes" yaml:"trusted_prefixes"`

	// MaxConcurrentValidations caps strategies validating at once during
	// ValidateAll and DetectFormat fan-out.
	MaxConcurrentValidations int `json:"max_concurrent_validations" yaml:"max_concurrent_validations"`
}

// Default configuration values.
const (
	DefaultCacheSize                = 1000
	DefaultCacheTTL                 = 5 * time.Minute
	DefaultDetectionThreshold       = 0.5
	DefaultDetectionPrefix          = 3
	DefaultMaxFormatEntries         = 100
	DefaultMaxErrorPatterns         = 50
	DefaultCleanupFactor            = 0.8
	DefaultMaxConcurrentValidations = 8
)

// DefaultConfig returns the registry defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize:                DefaultCacheSize,
		CacheTTL:                 DefaultCacheTTL,
		DetectionThreshold:       DefaultDetectionThreshold,
		DetectionPrefix:          DefaultDetectionPrefix,
		MaxFormatEntries:         DefaultMaxFormatEntries,
		MaxErrorPatterns:         DefaultMaxErrorPatterns,
		CleanupFactor:            DefaultCleanupFactor,
		MaxConcurrentValidations: DefaultMaxConcurrentValidations,
	}
}

// withDefaults fills zero-valued fields with defaults.
func (c Config) withDefaults() Config {
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.DetectionThreshold == 0 {
		c.DetectionThreshold = DefaultDetectionThreshold
	}
	if c.DetectionPrefix == 0 {
		c.DetectionPrefix = DefaultDetectionPrefix
	}
	if c.MaxFormatEntries == 0 {
		c.MaxFormatEntries = DefaultMaxFormatEntries
	}
	if c.MaxErrorPatterns == 0 {
		c.MaxErrorPatterns = DefaultMaxErrorPatterns
	}
	if c.CleanupFactor == 0 {
		c.CleanupFactor = DefaultCleanupFactor
	}
	if c.MaxConcurrentValidations == 0 {
		c.MaxConcurrentValidations = DefaultMaxConcurrentValidations
	}
	return c
}

// Validate checks config values for consistency.
func (c Config) Validate() error {
	if c.CacheSize < 0 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "cache size must not be negative")
	}
	if c.CacheTTL < 0 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "cache ttl must not be negative")
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "detection threshold must be in [0,1]")
	}
	if c.DetectionPrefix < 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "detection prefix must be at least 1")
	}
	if c.MaxFormatEntries < 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "max format entries must be at least 1")
	}
	if c.MaxErrorPatterns < 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "max error patterns must be at least 1")
	}
	if c.CleanupFactor <= 0 || c.CleanupFactor > 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "cleanup factor must be in (0,1]")
	}
	if c.MaxConcurrentValidations < 1 {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig, "StrategyRegistry", "Validate", "max concurrent validations must be at least 1")
	}
	return nil
}
