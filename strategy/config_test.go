package strategy

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/citevet/citevet/errors"
)

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	config := (Config{DetectionPrefix: 10}).withDefaults()

	if config.DetectionPrefix != 10 {
		t.Errorf("DetectionPrefix = %d, want explicit 10 preserved", config.DetectionPrefix)
	}
	if config.CacheSize != DefaultCacheSize {
		t.Errorf("CacheSize = %d, want default %d", config.CacheSize, DefaultCacheSize)
	}
	if config.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want default %v", config.CacheTTL, DefaultCacheTTL)
	}
	if config.DetectionThreshold != DefaultDetectionThreshold {
		t.Errorf("DetectionThreshold = %v, want default %v", config.DetectionThreshold, DefaultDetectionThreshold)
	}
	if config.MaxFormatEntries != DefaultMaxFormatEntries {
		t.Errorf("MaxFormatEntries = %d, want default %d", config.MaxFormatEntries, DefaultMaxFormatEntries)
	}
	if config.MaxErrorPatterns != DefaultMaxErrorPatterns {
		t.Errorf("MaxErrorPatterns = %d, want default %d", config.MaxErrorPatterns, DefaultMaxErrorPatterns)
	}
	if config.CleanupFactor != DefaultCleanupFactor {
		t.Errorf("CleanupFactor = %v, want default %v", config.CleanupFactor, DefaultCleanupFactor)
	}
	if config.MaxConcurrentValidations != DefaultMaxConcurrentValidations {
		t.Errorf("MaxConcurrentValidations = %d, want default %d",
			config.MaxConcurrentValidations, DefaultMaxConcurrentValidations)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"cache disabled", func(c *Config) { c.DisableCache = true }, false},
		{"no ttl", func(c *Config) { c.CacheTTL = 0 }, false},
		{"threshold at bounds", func(c *Config) { c.DetectionThreshold = 1 }, false},
		{"negative cache size", func(c *Config) { c.CacheSize = -5 }, true},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Minute }, true},
		{"threshold below zero", func(c *Config) { c.DetectionThreshold = -0.1 }, true},
		{"threshold above one", func(c *Config) { c.DetectionThreshold = 1.1 }, true},
		{"zero prefix", func(c *Config) { c.DetectionPrefix = 0 }, true},
		{"zero format cap", func(c *Config) { c.MaxFormatEntries = 0 }, true},
		{"zero pattern cap", func(c *Config) { c.MaxErrorPatterns = 0 }, true},
		{"zero cleanup factor", func(c *Config) { c.CleanupFactor = 0 }, true},
		{"cleanup factor above one", func(c *Config) { c.CleanupFactor = 1.01 }, true},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentValidations = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !stderrors.Is(err, errors.ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
