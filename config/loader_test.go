package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/citevet/citevet/calibration"
	"github.com/citevet/citevet/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "format": "json"},
		"registry": {
			"detection_threshold": 0.65,
			"trusted_prefixes": ["github.com/example/styles"]
		},
		"cache": {"max_size": 250, "ttl": "10m"},
		"statistics": {"max_formats": 25},
		"calibration": {"default_method": "bayesian", "bins": 20}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.65, cfg.Registry.DetectionThreshold)
	assert.Equal(t, []string{"github.com/example/styles"}, cfg.Registry.TrustedPrefixes)
	assert.Equal(t, 250, cfg.Cache.MaxSize)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 25, cfg.Statistics.MaxFormats)
	assert.Equal(t, calibration.MethodBayesian, cfg.Calibration.DefaultMethod)

	// Untouched fields keep their defaults.
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 3, cfg.Registry.DetectionPrefix)
	assert.Equal(t, 50, cfg.Statistics.MaxPatterns)
}

func TestLoader_LoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: warn
cache:
  max_size: 64
  ttl: 90s
calibration:
  default_method: simple
`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.Cache.MaxSize)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, calibration.MethodSimple, cfg.Calibration.DefaultMethod)
	assert.Equal(t, "text", cfg.Logging.Format) // default preserved
}

func TestLoader_LayerMerge(t *testing.T) {
	base := writeConfig(t, "base.yaml", `
logging:
  level: debug
cache:
  max_size: 500
`)
	production := writeConfig(t, "production.json", `{
		"logging": {"level": "warn"}
	}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(production)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// The later layer wins where both set a value; everything else must come
	// through as the untouched default.
	want := DefaultConfig()
	want.Logging.Level = "warn"
	want.Cache.MaxSize = 500

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("merged config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_SchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown top-level key",
			content: `{"loging": {"level": "debug"}}`,
		},
		{
			name:    "misspelled registry key",
			content: `{"registry": {"detecton_threshold": 0.5}}`,
		},
		{
			name:    "wrong type",
			content: `{"cache": {"max_size": "large"}}`,
		},
		{
			name:    "bad enum value",
			content: `{"logging": {"level": "verbose"}}`,
		},
		{
			name:    "threshold out of range",
			content: `{"registry": {"detection_threshold": 1.5}}`,
		},
		{
			name:    "bad calibration method",
			content: `{"calibration": {"default_method": "astrology"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.json", tt.content)

			_, err := NewLoader().LoadFile(path)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoader_DepthLimitJSON(t *testing.T) {
	content := strings.Repeat("[", maxDocumentDepth+5) + strings.Repeat("]", maxDocumentDepth+5)
	path := writeConfig(t, "config.json", content)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigTooDeep))
}

func TestLoader_DepthLimitYAML(t *testing.T) {
	deep := map[string]any{}
	current := deep
	for range maxDocumentDepth + 5 {
		next := map[string]any{}
		current["a"] = next
		current = next
	}
	data, err := yaml.Marshal(deep)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigTooDeep))
}

func TestLoader_SizeLimit(t *testing.T) {
	padding := strings.Repeat(" ", maxConfigBytes)
	path := writeConfig(t, "config.json", `{}`+padding)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigTooLarge))
}

func TestLoader_PathValidation(t *testing.T) {
	loader := NewLoader()

	_, err := loader.LoadFile("../outside.json")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))

	_, err = loader.LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))

	_, err = loader.LoadFile("")
	require.Error(t, err)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfigNotFound))
}

func TestLoader_MalformedJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"logging": }`)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("CITEVET_LOG_LEVEL", "debug")
	t.Setenv("CITEVET_CACHE_TTL", "90s")
	t.Setenv("CITEVET_CACHE_SIZE", "77")
	t.Setenv("CITEVET_DETECTION_THRESHOLD", "0.8")
	t.Setenv("CITEVET_TRUSTED_PREFIXES", "github.com/example/styles, github.com/example/extra,")
	t.Setenv("CITEVET_CALIBRATION_METHOD", "platt_scaling")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 77, cfg.Cache.MaxSize)
	assert.Equal(t, 0.8, cfg.Registry.DetectionThreshold)
	assert.Equal(t,
		[]string{"github.com/example/styles", "github.com/example/extra"},
		cfg.Registry.TrustedPrefixes)
	assert.Equal(t, calibration.MethodPlatt, cfg.Calibration.DefaultMethod)
}

func TestLoader_EnvOverridesBeatFiles(t *testing.T) {
	t.Setenv("CITEVET_LOG_LEVEL", "error")

	path := writeConfig(t, "config.json", `{"logging": {"level": "debug"}}`)
	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoader_EnvOverrideMalformed(t *testing.T) {
	t.Setenv("CITEVET_CACHE_SIZE", "enormous")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "CITEVET_CACHE_SIZE")
}

func TestLoader_EnvOverrideUnknownMethod(t *testing.T) {
	t.Setenv("CITEVET_CALIBRATION_METHOD", "astrology")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownMethod))
}

func TestLoader_EnvOverrideTooLong(t *testing.T) {
	t.Setenv("CITEVET_LOG_LEVEL", strings.Repeat("x", maxEnvValueLength+1))

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CITEVET_LOG_LEVEL")
}

func TestLoader_EnableValidation(t *testing.T) {
	t.Setenv("CITEVET_DETECTION_PREFIX", "0")

	// Semantic validation rejects a zero prefix.
	_, err := NewLoader().Load()
	require.Error(t, err)

	// With validation off the document loads as written.
	loader := NewLoader()
	loader.EnableValidation(false)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Registry.DetectionPrefix)
}

func TestConfig_SaveToFile_JSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Cache.MaxSize = 123
	cfg.Registry.TrustedPrefixes = []string{"github.com/example/styles"}

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config changed across save/load (-saved +loaded):\n%s", diff)
	}
}

func TestConfig_SaveToFile_YAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Format = "json"
	cfg.Calibration.Bins = 20

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config changed across save/load (-saved +loaded):\n%s", diff)
	}
}

func TestDeepMergeMaps(t *testing.T) {
	base := map[string]any{
		"logging": map[string]any{"level": "debug", "format": "text"},
		"cache":   map[string]any{"max_size": 500},
	}
	override := map[string]any{
		"logging": map[string]any{"level": "warn"},
		"extra":   nil,
	}

	merged := deepMergeMaps(base, override)

	logging := merged["logging"].(map[string]any)
	assert.Equal(t, "warn", logging["level"])
	assert.Equal(t, "text", logging["format"])
	assert.Equal(t, map[string]any{"max_size": 500}, merged["cache"])
	_, present := merged["extra"]
	assert.False(t, present, "nil override values are dropped")
}
