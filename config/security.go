package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/citevet/citevet/errors"
)

// Security limits applied to configuration documents before they are parsed.
const (
	maxConfigBytes    = 1 << 20 // 1MB max config file size
	maxDocumentDepth  = 32      // maximum nesting depth
	maxEnvValueLength = 4096    // maximum environment variable value length
	maxPathLength     = 4096    // maximum file path length
)

// validateConfigPath checks a config file path before any filesystem access:
// length cap, traversal containment for relative paths, and an extension
// allowlist (.json, .yaml, .yml).
func validateConfigPath(path string) error {
	if path == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: empty path", errors.ErrInvalidConfig),
			"ConfigLoader", "validateConfigPath", "path validation")
	}
	if len(path) > maxPathLength {
		return errors.WrapInvalid(
			fmt.Errorf("%w: path length %d exceeds %d", errors.ErrInvalidConfig, len(path), maxPathLength),
			"ConfigLoader", "validateConfigPath", "path validation")
	}

	// Absolute paths are taken as given. Relative paths must still resolve
	// inside the working directory so "../../etc/passwd" cannot escape.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: cannot resolve %q: %v", errors.ErrInvalidConfig, path, err),
				"ConfigLoader", "validateConfigPath", "path validation")
		}
		cwd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "ConfigLoader", "validateConfigPath", "working directory lookup")
		}
		rel, err := filepath.Rel(cwd, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q resolves outside the working directory", errors.ErrInvalidConfig, path),
				"ConfigLoader", "validateConfigPath", "path validation")
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: unsupported config extension on %q", errors.ErrInvalidConfig, path),
			"ConfigLoader", "validateConfigPath", "path validation")
	}
}

// safeReadFile reads a config file after validating the path, checking the
// size cap, and confirming it is a regular file.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrConfigNotFound, path),
				"ConfigLoader", "safeReadFile", "config lookup")
		}
		return nil, errors.Wrap(err, "ConfigLoader", "safeReadFile", "config stat")
	}
	if info.Size() > maxConfigBytes {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes exceeds %d", errors.ErrConfigTooLarge, info.Size(), maxConfigBytes),
			"ConfigLoader", "safeReadFile", "size check")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q is not a regular file", errors.ErrInvalidConfig, path),
			"ConfigLoader", "safeReadFile", "file type check")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ConfigLoader", "safeReadFile", "config read")
	}
	return data, nil
}

// safeWriteFile writes a config document with the same path and size checks
// as reads, using owner-only permissions.
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return err
	}
	if len(data) > maxConfigBytes {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes exceeds %d", errors.ErrConfigTooLarge, len(data), maxConfigBytes),
			"ConfigLoader", "safeWriteFile", "size check")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "ConfigLoader", "safeWriteFile", "config write")
	}
	return nil
}

// validateEnvValue bounds an environment override before it is applied.
func validateEnvValue(key, value string) error {
	if len(value) > maxEnvValueLength {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s value length %d exceeds %d",
				errors.ErrInvalidConfig, key, len(value), maxEnvValueLength),
			"ConfigLoader", "validateEnvValue", "env validation")
	}
	if strings.ContainsRune(value, 0) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s contains a null byte", errors.ErrInvalidConfig, key),
			"ConfigLoader", "validateEnvValue", "env validation")
	}
	return nil
}

// scanJSONDepth walks raw JSON bytes tracking bracket depth so a hostile
// document is rejected before json.Unmarshal recurses into it.
func scanJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		if escaped {
			escaped = false
			continue
		}
		if b == '\\' && inString {
			escaped = true
			continue
		}
		if b == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch b {
		case '{', '[':
			depth++
			if depth > maxDocumentDepth {
				return errors.WrapInvalid(
					fmt.Errorf("%w: nesting depth %d exceeds %d", errors.ErrConfigTooDeep, depth, maxDocumentDepth),
					"ConfigLoader", "scanJSONDepth", "depth check")
			}
		case '}', ']':
			depth--
			if depth < 0 {
				return errors.WrapInvalid(
					fmt.Errorf("%w: unbalanced brackets", errors.ErrInvalidConfig),
					"ConfigLoader", "scanJSONDepth", "depth check")
			}
		}
	}

	if depth != 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: unclosed brackets", errors.ErrInvalidConfig),
			"ConfigLoader", "scanJSONDepth", "depth check")
	}
	return nil
}

// checkDocumentDepth bounds the nesting of an already-parsed document. YAML
// input is depth-checked here since the byte scan only understands JSON.
func checkDocumentDepth(value any) error {
	if documentDepth(value) > maxDocumentDepth {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nesting exceeds %d", errors.ErrConfigTooDeep, maxDocumentDepth),
			"ConfigLoader", "checkDocumentDepth", "depth check")
	}
	return nil
}

func documentDepth(value any) int {
	switch v := value.(type) {
	case map[string]any:
		deepest := 0
		for _, nested := range v {
			if d := documentDepth(nested); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case []any:
		deepest := 0
		for _, nested := range v {
			if d := documentDepth(nested); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	default:
		return 0
	}
}
