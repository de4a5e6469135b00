package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/citevet/citevet/calibration"
	"github.com/citevet/citevet/errors"
)

// envPrefix is the prefix shared by all environment overrides.
const envPrefix = "CITEVET"

// Loader loads configuration documents in layers: defaults first, then each
// added file in order, then environment overrides. Files may be JSON or YAML;
// each is schema-checked before merging.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a loader with semantic validation enabled.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  envPrefix,
	}
}

// AddLayer appends a configuration file layer. Later layers override earlier
// ones field by field.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles the Config.Validate pass after loading. Schema
// validation of each document always runs.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file over the defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges the default document, every layer, and environment overrides.
func (l *Loader) Load() (*Config, error) {
	merged, err := configToMap(DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "ConfigLoader", "Load", "defaults encoding")
	}

	for _, path := range l.layers {
		document, err := l.loadDocument(path)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", path, err)
		}
		merged = deepMergeMaps(merged, document)
	}

	cfg, err := configFromMap(merged)
	if err != nil {
		return nil, err
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "ConfigLoader", "Load", "config validation")
		}
	}
	return cfg, nil
}

// loadDocument reads, parses, depth-checks, and schema-checks one file.
func (l *Loader) loadDocument(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var document map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := scanJSONDepth(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"ConfigLoader", "loadDocument", "json parse")
		}
	default: // .yaml or .yml; the extension allowlist already ran
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"ConfigLoader", "loadDocument", "yaml parse")
		}
		if err := checkDocumentDepth(document); err != nil {
			return nil, err
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

// deepMergeMaps recursively merges two documents with override winning.
// Nil override values are ignored so explicit nulls cannot blank a section.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// configToMap round-trips a Config through JSON into a mergeable document.
func configToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var document map[string]any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	return document, nil
}

// configFromMap decodes a merged document back into a Config. Duration
// strings in the cache section are handled by cache.Config's unmarshaler.
func configFromMap(document map[string]any) (*Config, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return nil, errors.Wrap(err, "ConfigLoader", "configFromMap", "document encoding")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"ConfigLoader", "configFromMap", "document decoding")
	}
	return &cfg, nil
}

// applyEnvOverrides applies CITEVET_* environment variables over the loaded
// document. Values are validated and parsed; a malformed value fails the
// load instead of being silently skipped.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		suffix string
		apply  func(value string) error
	}{
		{"LOG_LEVEL", func(v string) error {
			cfg.Logging.Level = v
			return nil
		}},
		{"LOG_FORMAT", func(v string) error {
			cfg.Logging.Format = v
			return nil
		}},
		{"CACHE_ENABLED", func(v string) error {
			enabled, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			cfg.Cache.Enabled = enabled
			return nil
		}},
		{"CACHE_SIZE", func(v string) error {
			size, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			cfg.Cache.MaxSize = size
			return nil
		}},
		{"CACHE_TTL", func(v string) error {
			ttl, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			cfg.Cache.TTL = ttl
			return nil
		}},
		{"DETECTION_THRESHOLD", func(v string) error {
			threshold, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			cfg.Registry.DetectionThreshold = threshold
			return nil
		}},
		{"DETECTION_PREFIX", func(v string) error {
			prefix, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			cfg.Registry.DetectionPrefix = prefix
			return nil
		}},
		{"MAX_CONCURRENT_VALIDATIONS", func(v string) error {
			limit, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			cfg.Registry.MaxConcurrentValidations = limit
			return nil
		}},
		{"TRUSTED_PREFIXES", func(v string) error {
			parts := strings.Split(v, ",")
			prefixes := make([]string, 0, len(parts))
			for _, part := range parts {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					prefixes = append(prefixes, trimmed)
				}
			}
			cfg.Registry.TrustedPrefixes = prefixes
			return nil
		}},
		{"CALIBRATION_METHOD", func(v string) error {
			method, err := calibration.ParseMethod(v)
			if err != nil {
				return err
			}
			cfg.Calibration.DefaultMethod = method
			return nil
		}},
	}

	for _, override := range overrides {
		key := l.envPrefix + "_" + override.suffix
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := validateEnvValue(key, value); err != nil {
			return err
		}
		if err := override.apply(value); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s: %w", errors.ErrInvalidConfig, key, err),
				"ConfigLoader", "applyEnvOverrides", "env parse")
		}
	}
	return nil
}

// SaveToFile writes the document to path, as YAML or indented JSON depending
// on the extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "config encoding")
	}
	return safeWriteFile(path, data)
}
