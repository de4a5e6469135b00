// Package errors provides standardized error handling patterns for CiteVet
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the toolkit.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Component lifecycle errors
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrAlreadyStopped = errors.New("component already stopped")
	ErrShuttingDown   = errors.New("component is shutting down")

	// Strategy registration errors
	ErrInvalidName       = errors.New("invalid strategy name")
	ErrBadPriority       = errors.New("priority out of range")
	ErrUntrustedOrigin   = errors.New("untrusted strategy origin")
	ErrDuplicateStrategy = errors.New("strategy already registered")
	ErrNilFactory        = errors.New("nil strategy factory")

	// Strategy lookup and lifecycle errors
	ErrStrategyNotFound  = errors.New("strategy not found")
	ErrStrategyDisabled  = errors.New("strategy disabled")
	ErrStrategyConstruct = errors.New("strategy construction failed")

	// Validation errors
	ErrEmptyBatch      = errors.New("empty citation batch")
	ErrNoStrategies    = errors.New("no enabled strategies")
	ErrValidationPanic = errors.New("validation panicked")
	ErrConfidenceRange = errors.New("confidence out of range")
	ErrUnknownMethod   = errors.New("unknown calibration method")

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
	ErrConfigTooLarge = errors.New("configuration exceeds size limit")
	ErrConfigTooDeep  = errors.New("configuration exceeds nesting limit")

	// Cache errors
	ErrInvalidKey = errors.New("invalid cache key")

	// Resource errors
	ErrQueueFull    = errors.New("work queue full")
	ErrRateLimited  = errors.New("rate limited")
	ErrDrainTimeout = errors.New("timeout draining work queue")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may succeed on retry
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	// Check for known transient errors
	if errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrDrainTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	// Check error message for common transient patterns
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"temporary",
		"unavailable",
		"busy",
		"retry",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	// Check for known fatal errors
	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrConfigTooLarge) ||
		errors.Is(err, ErrConfigTooDeep) ||
		errors.Is(err, ErrValidationPanic) ||
		errors.Is(err, ErrStrategyConstruct) {
		return true
	}

	// Check error message for fatal patterns
	errStr := strings.ToLower(err.Error())
	fatalPatterns := []string{
		"fatal",
		"panic",
		"corrupted",
		"invalid config",
		"missing config",
	}

	for _, pattern := range fatalPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	// Check for known invalid errors
	if errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrBadPriority) ||
		errors.Is(err, ErrUntrustedOrigin) ||
		errors.Is(err, ErrDuplicateStrategy) ||
		errors.Is(err, ErrNilFactory) ||
		errors.Is(err, ErrStrategyNotFound) ||
		errors.Is(err, ErrStrategyDisabled) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrNoStrategies) ||
		errors.Is(err, ErrConfidenceRange) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidKey) {
		return true
	}

	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}
