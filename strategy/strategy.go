package strategy

import (
	"context"
	"time"
)

// FormatStrategy validates batches of citation strings against one citation
// format. Implementations are expected to be cheap to construct and safe to
// discard after use; the registry builds a fresh instance for every lookup.
type FormatStrategy interface {
	// FormatName returns the format identifier (e.g. "apa", "mla").
	FormatName() string

	// FormatVersion returns the format edition or style version.
	FormatVersion() string

	// SupportedTypes returns the citation source types this strategy can
	// validate (e.g. "article", "book", "website").
	SupportedTypes() []string

	// Validate checks a batch of citation strings and reports the outcome.
	// Implementations should honor ctx cancellation for long batches.
	Validate(ctx context.Context, citations []string) (*Result, error)
}

// Factory constructs a FormatStrategy instance. Factories must not perform
// I/O; construction failures surface at lookup time, not at registration.
type Factory func() (FormatStrategy, error)

// Descriptor is the static metadata a strategy declares about itself.
// Registration validates the descriptor without constructing the strategy.
type Descriptor struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	SupportedTypes []string `json:"supported_types"`
}

// DefaultPriority is the priority assigned by NewRegistration.
const DefaultPriority = 50

// Registration bundles everything needed to register a format strategy.
// Note that the zero value of Enabled is false; use NewRegistration or set
// Enabled explicitly for strategies that should serve immediately.
type Registration struct {
	Descriptor Descriptor
	Factory    Factory
	Priority   int // scheduling weight in [0,100], higher runs first
	Enabled    bool
}

// NewRegistration builds an enabled Registration with the default priority.
func NewRegistration(descriptor Descriptor, factory Factory) Registration {
	return Registration{
		Descriptor: descriptor,
		Factory:    factory,
		Priority:   DefaultPriority,
		Enabled:    true,
	}
}

// Metadata is the registry's view of one registered strategy. All fields are
// copies; mutating a returned Metadata does not affect the registry.
type Metadata struct {
	Descriptor   Descriptor `json:"descriptor"`
	Priority     int        `json:"priority"`
	Enabled      bool       `json:"enabled"`
	RegisteredAt time.Time  `json:"registered_at"`
	UsageCount   uint64     `json:"usage_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// FormatInfo summarizes one registered format for listing.
type FormatInfo struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	SupportedTypes []string `json:"supported_types"`
	Priority       int      `json:"priority"`
	Enabled        bool     `json:"enabled"`
}

// Result reports the outcome of validating one citation batch against one
// format. Confidence is clamped to [0,1] when the registry ingests a result
// from a strategy.
type Result struct {
	FormatName       string   `json:"format_name"`
	IsValid          bool     `json:"is_valid"`
	Confidence       float64  `json:"confidence"`
	Errors           []string `json:"errors,omitempty"`
	TotalCitations   int      `json:"total_citations"`
	ValidCitations   int      `json:"valid_citations"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
}

// entry is the registry-internal record for one registered strategy.
// All fields are guarded by the registry's structural lock.
type entry struct {
	descriptor   Descriptor
	factory      Factory
	priority     int
	enabled      bool
	registeredAt time.Time
	usageCount   uint64
	lastUsed     *time.Time
	successRate  float64
	outcomes     uint64 // validation results recorded for this strategy
}

// runStrategy is an immutable snapshot of one strategy taken under the
// structural lock so validation can run without holding it.
type runStrategy struct {
	name        string
	factory     Factory
	priority    int
	successRate float64
}

// clampConfidence bounds a confidence score to [0,1]. NaN maps to 0.
func clampConfidence(value float64) float64 {
	if value != value { // NaN
		return 0
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// normalizeResult ingests a strategy-produced result: confidence is clamped,
// missing identity fields are filled in, and the measured wall time replaces
// an unset processing time.
func normalizeResult(result *Result, name string, batchSize int, elapsed time.Duration) *Result {
	if result == nil {
		result = &Result{}
	}
	result.Confidence = clampConfidence(result.Confidence)
	if result.FormatName == "" {
		result.FormatName = name
	}
	if result.TotalCitations == 0 {
		result.TotalCitations = batchSize
	}
	if result.ValidCitations < 0 {
		result.ValidCitations = 0
	}
	if result.ValidCitations > result.TotalCitations {
		result.ValidCitations = result.TotalCitations
	}
	if result.ProcessingTimeMs <= 0 {
		result.ProcessingTimeMs = float64(elapsed) / float64(time.Millisecond)
	}
	return result
}

// degradedResult builds the failure result used when a strategy errors,
// panics, or the context is cancelled before it could run.
func degradedResult(name string, batchSize int, elapsed time.Duration, reason string) *Result {
	return &Result{
		FormatName:       name,
		IsValid:          false,
		Confidence:       0,
		Errors:           []string{reason},
		TotalCitations:   batchSize,
		ValidCitations:   0,
		ProcessingTimeMs: float64(elapsed) / float64(time.Millisecond),
	}
}
