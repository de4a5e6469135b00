package calibration

import "time"

// Method identifies a calibration algorithm.
type Method string

const (
	// MethodTemperature rescales the raw logit by a learned temperature.
	MethodTemperature Method = "temperature_scaling"

	// MethodPlatt applies a learned affine transform in logit space.
	MethodPlatt Method = "platt_scaling"

	// MethodBayesian computes a Beta-posterior mean with evidence-weighted
	// pseudo-counts.
	MethodBayesian Method = "bayesian"

	// MethodHistogram blends the raw score with the historical accuracy of
	// its equal-width bin.
	MethodHistogram Method = "histogram"

	// MethodEnsemble combines the temperature, Platt, and Bayesian outputs
	// with confidence-proportional weights.
	MethodEnsemble Method = "ensemble"

	// MethodSimple is the evidence-and-sample-size heuristic used when no
	// parametric method applies.
	MethodSimple Method = "simple"
)

// Rule types recognized by the evidence quality multiplier. Unknown rule
// types are treated as fully reliable.
const (
	RuleExpert    = "expert_rule"
	RulePattern   = "pattern_match"
	RuleHeuristic = "heuristic"
)

// Evidence is one piece of support behind a raw confidence score.
type Evidence struct {
	// RuleType names the kind of rule that produced this evidence
	// (expert_rule, pattern_match, heuristic).
	RuleType string `json:"rule_type"`

	// Confidence is the evidence item's own confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Context carries arbitrary supporting detail. Richer context raises
	// the item's quality contribution.
	Context map[string]any `json:"context,omitempty"`

	// Description is a human-readable account of the evidence.
	Description string `json:"description,omitempty"`
}

// Sample is one labeled feedback point: a raw confidence paired with the
// accuracy later observed for it. Samples are append-only and never mutated.
type Sample struct {
	RawConfidence  float64   `json:"raw_confidence"`
	ActualAccuracy float64   `json:"actual_accuracy"`
	FormatName     string    `json:"format_name,omitempty"`
	SampleSize     int       `json:"sample_size"`
	Timestamp      time.Time `json:"timestamp"`
}

// Request carries the inputs of a single calibration.
type Request struct {
	// RawConfidence is the uncalibrated score. Out-of-range and non-finite
	// values are clamped, never rejected.
	RawConfidence float64

	// Evidence supports the raw score; may be empty.
	Evidence []Evidence

	// FormatName optionally scopes historical lookups to one format.
	FormatName string

	// Method selects the algorithm; empty or unknown falls back to the
	// configured default.
	Method Method

	// SampleSize is how many observations produced the raw score.
	SampleSize int
}

// Interval is a confidence interval around a calibrated score.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Result is the outcome of one calibration. It is a pure value and is not
// retained by the calibrator.
type Result struct {
	// CalibratedConfidence is the adjusted score in [0,1].
	CalibratedConfidence float64 `json:"calibrated_confidence"`

	// RawConfidence is the clamped input score.
	RawConfidence float64 `json:"raw_confidence"`

	// Method is the algorithm that actually produced the output, which may
	// differ from the requested one when a fallback was taken.
	Method Method `json:"method"`

	// Interval is the normal-approximation confidence interval.
	Interval *Interval `json:"confidence_interval,omitempty"`

	// ReliabilityScore summarizes how much the calibrated score should be
	// trusted, combining evidence quality, history, and sample size.
	ReliabilityScore float64 `json:"reliability_score"`

	// UncertaintyEstimate is the combined uncertainty in [0,0.5].
	UncertaintyEstimate float64 `json:"uncertainty_estimate"`

	// CalibrationStrength is |calibrated - raw|.
	CalibrationStrength float64 `json:"calibration_strength"`

	// EvidenceQuality is the aggregate quality of the supplied evidence.
	EvidenceQuality float64 `json:"evidence_quality"`

	// HistoricalAccuracy is the mean observed accuracy of similar past
	// scores, or 0.5 when no history applies.
	HistoricalAccuracy float64 `json:"historical_accuracy"`
}

// Summary reports the calibrator's learned state.
type Summary struct {
	// HistorySize is the number of retained feedback samples.
	HistorySize int `json:"history_size"`

	// MethodCounts is how many calibrations each method has produced.
	MethodCounts map[Method]uint64 `json:"method_counts"`

	// Temperature is the current temperature-scaling parameter.
	Temperature float64 `json:"temperature"`

	// PlattA and PlattB are the current Platt-scaling parameters.
	PlattA float64 `json:"platt_a"`
	PlattB float64 `json:"platt_b"`

	// MeanAbsoluteError is the temperature model's error over the recent
	// refit window, or 0 with no history.
	MeanAbsoluteError float64 `json:"mean_absolute_error"`

	// DefaultMethod is the configured fallback method.
	DefaultMethod Method `json:"default_method"`
}
