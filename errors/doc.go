// Package errors provides standardized error handling patterns for CiteVet components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// the validation toolkit: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// Classification lets callers make informed decisions about retries and
// degradation without hardcoded error string matching. It integrates with Go's
// standard error handling patterns, supporting errors.Is(), errors.As(), and
// error wrapping chains.
//
// # Error Classification
//
//   - Transient: queue saturation, rate limiting, context timeouts (retry reasonable)
//   - Invalid: rejected registrations, unknown strategies, malformed batches (do not retry)
//   - Fatal: configuration violations, strategy construction failures, captured panics
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if !reg.Has(name) {
//	    return errors.ErrStrategyNotFound
//	}
//
// Wrap errors with context for debugging:
//
//	if err := strat.Validate(ctx, batch); err != nil {
//	    return errors.Wrap(err, "Registry", "ValidateAll", "strategy validation")
//	}
//
// Check classification when deciding how to proceed:
//
//	if err := reg.Get("apa7"); err != nil {
//	    if errors.IsInvalid(err) {
//	        // Caller asked for something that does not exist; surface it.
//	    } else if errors.IsFatal(err) {
//	        // Construction failure; disable the strategy and continue.
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing and debugging across the toolkit.
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification through
// the chain.
//
// # Standard Error Variables
//
// Pre-defined error variables cover the common conditions, organized by
// category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrAlreadyStopped
//   - Registration: ErrInvalidName, ErrBadPriority, ErrUntrustedOrigin, ErrDuplicateStrategy
//   - Lookup: ErrStrategyNotFound, ErrStrategyDisabled, ErrStrategyConstruct
//   - Validation: ErrEmptyBatch, ErrNoStrategies, ErrValidationPanic
//   - Configuration: ErrInvalidConfig, ErrConfigTooLarge, ErrConfigTooDeep
//   - Resources: ErrQueueFull, ErrRateLimited, ErrDrainTimeout
//
// Use these variables instead of creating ad-hoc error messages so that
// callers can branch with errors.Is.
//
// # Integration with errors.As/Is
//
// All error types support standard library inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("component: %s, class: %s", ce.Component, ce.Class)
//	}
//
//	wrapped := errors.Wrap(errors.ErrStrategyNotFound, "Registry", "Get", "lookup")
//	errors.Is(wrapped, errors.ErrStrategyNotFound) // true
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient, so context-based cancellation during batch validation is
// handled the same way as any other temporary condition.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access. ClassifiedError is safe to
// share across goroutines after creation.
package errors
