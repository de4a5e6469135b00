// Package retry provides exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff for
// operations whose failures may clear on their own, such as submitting work
// to a briefly full queue.
//
// Whether a failure is worth retrying is decided by the errors package: Do
// retries only errors classified transient and returns every other class
// immediately. Callers therefore never mark individual errors; they rely on
// the classification their dependencies already apply.
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (short-lived contention)
//
// # Usage
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return pool.Submit(job)
//	})
//
// Custom configuration:
//
//	cfg := retry.Config{
//	    MaxAttempts:  5,
//	    InitialDelay: 200 * time.Millisecond,
//	    MaxDelay:     10 * time.Second,
//	    Multiplier:   2.0,
//	    AddJitter:    true,
//	}
//	err := retry.Do(ctx, cfg, operation)
//
// # Context Cancellation
//
// Do stops during a backoff delay as soon as the context is cancelled and
// reports the context error. A running operation is never interrupted; pass
// the same context into the operation when it should observe cancellation
// itself.
//
// # Thread Safety
//
// All functions are safe for concurrent use.
package retry
