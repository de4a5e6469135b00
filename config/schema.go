package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/citevet/citevet/errors"
)

// documentSchema is the JSON schema every loaded configuration document must
// satisfy before it is merged. Unknown keys are rejected so a typo like
// "detecton_threshold" fails loudly instead of being silently ignored.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "citevet configuration",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["text", "json"]}
      }
    },
    "registry": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "detection_threshold": {"type": "number", "minimum": 0, "maximum": 1},
        "detection_prefix": {"type": "integer", "minimum": 1},
        "detection_full_batch": {"type": "boolean"},
        "trusted_prefixes": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "max_concurrent_validations": {"type": "integer", "minimum": 1}
      }
    },
    "cache": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "max_size": {"type": "integer", "minimum": 1},
        "ttl": {
          "oneOf": [
            {"type": "string", "minLength": 2},
            {"type": "integer", "minimum": 0}
          ]
        }
      }
    },
    "statistics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_formats": {"type": "integer", "minimum": 1},
        "max_patterns": {"type": "integer", "minimum": 1},
        "cleanup_factor": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
      }
    },
    "calibration": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "default_method": {
          "type": "string",
          "enum": ["temperature_scaling", "platt_scaling", "bayesian", "histogram", "ensemble", "simple"]
        },
        "interval_level": {"type": "number", "enum": [0.9, 0.95, 0.99]},
        "history_limit": {"type": "integer", "minimum": 1},
        "bins": {"type": "integer", "minimum": 2},
        "smoothing": {"type": "number", "minimum": 0, "maximum": 1},
        "prior_alpha": {"type": "number", "exclusiveMinimum": 0},
        "prior_beta": {"type": "number", "exclusiveMinimum": 0},
        "model_uncertainty": {"type": "number", "minimum": 0, "maximum": 1}
      }
    }
  }
}`

// validateDocument checks a parsed configuration document against the
// embedded schema. Validation runs on each raw file before merging, so error
// fields point at what the user actually wrote.
func validateDocument(document map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.Wrap(err, "ConfigLoader", "validateDocument", "schema evaluation")
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(issues, "; ")),
		"ConfigLoader", "validateDocument", "document validation")
}
