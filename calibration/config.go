package calibration

import (
	"fmt"

	"github.com/citevet/citevet/errors"
)

// Config holds calibrator configuration.
type Config struct {
	// DefaultMethod is used when a request names no method or an unknown
	// one (default: ensemble).
	DefaultMethod Method `json:"default_method,omitempty" yaml:"default_method,omitempty"`

	// IntervalLevel is the confidence interval level; one of 0.90, 0.95,
	// 0.99 (default: 0.95).
	IntervalLevel float64 `json:"interval_level,omitempty" yaml:"interval_level,omitempty"`

	// HistoryLimit bounds the retained feedback history; the oldest samples
	// are dropped beyond it (default: 1000).
	HistoryLimit int `json:"history_limit,omitempty" yaml:"history_limit,omitempty"`

	// Bins is the number of equal-width bins for histogram calibration
	// (default: 10).
	Bins int `json:"bins,omitempty" yaml:"bins,omitempty"`

	// Smoothing is how strongly histogram calibration leans back toward the
	// raw score, in [0,1] (default: 0.3).
	Smoothing float64 `json:"smoothing,omitempty" yaml:"smoothing,omitempty"`

	// PriorAlpha and PriorBeta are the Beta prior for Bayesian calibration
	// (default: 1, 1, the uniform prior).
	PriorAlpha float64 `json:"prior_alpha,omitempty" yaml:"prior_alpha,omitempty"`
	PriorBeta  float64 `json:"prior_beta,omitempty" yaml:"prior_beta,omitempty"`

	// ModelUncertainty is the fixed calibrator-model risk term folded into
	// every uncertainty estimate (default: 0.1).
	ModelUncertainty float64 `json:"model_uncertainty,omitempty" yaml:"model_uncertainty,omitempty"`
}

// DefaultConfig returns the standard calibrator configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMethod:    MethodEnsemble,
		IntervalLevel:    0.95,
		HistoryLimit:     1000,
		Bins:             10,
		Smoothing:        0.3,
		PriorAlpha:       1.0,
		PriorBeta:        1.0,
		ModelUncertainty: 0.1,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultMethod == "" {
		c.DefaultMethod = def.DefaultMethod
	}
	if c.IntervalLevel == 0 {
		c.IntervalLevel = def.IntervalLevel
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.Bins == 0 {
		c.Bins = def.Bins
	}
	if c.Smoothing == 0 {
		c.Smoothing = def.Smoothing
	}
	if c.PriorAlpha == 0 {
		c.PriorAlpha = def.PriorAlpha
	}
	if c.PriorBeta == 0 {
		c.PriorBeta = def.PriorBeta
	}
	if c.ModelUncertainty == 0 {
		c.ModelUncertainty = def.ModelUncertainty
	}
	return c
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if _, err := ParseMethod(string(c.DefaultMethod)); err != nil {
		return err
	}
	switch c.IntervalLevel {
	case 0.90, 0.95, 0.99:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("interval_level must be 0.90, 0.95, or 0.99, got %v", c.IntervalLevel))
	}
	if c.HistoryLimit <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("history_limit must be positive, got %d", c.HistoryLimit))
	}
	if c.Bins < 2 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("bins must be at least 2, got %d", c.Bins))
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("smoothing must be in [0,1], got %v", c.Smoothing))
	}
	if c.PriorAlpha <= 0 || c.PriorBeta <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("beta prior must be positive, got alpha=%v beta=%v", c.PriorAlpha, c.PriorBeta))
	}
	if c.ModelUncertainty < 0 || c.ModelUncertainty > 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "calibration", "Validate",
			fmt.Sprintf("model_uncertainty must be in [0,1], got %v", c.ModelUncertainty))
	}
	return nil
}

// ParseMethod converts a method name to a Method, rejecting unknown names.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodTemperature, MethodPlatt, MethodBayesian, MethodHistogram, MethodEnsemble, MethodSimple:
		return Method(name), nil
	default:
		return "", errors.WrapInvalid(errors.ErrUnknownMethod, "calibration", "ParseMethod",
			fmt.Sprintf("unknown calibration method %q", name))
	}
}
