package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/citevet/citevet/errors"
)

// Config provides retry configuration.
type Config struct {
	MaxAttempts  int           // total attempts including the first (0 runs once)
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // backoff multiplier, at least 1
	AddJitter    bool          // up to 25% extra delay to spread contending retriers
}

// DefaultConfig returns sensible defaults for retry operations.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick returns a config for fast retries against short-lived contention,
// such as a briefly full work queue.
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

// withDefaults fills unset fields and validates the result.
func (c Config) withDefaults() (Config, error) {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier == 0 {
		c.Multiplier = def.Multiplier
	}

	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return c, errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Do",
			"delays cannot be negative")
	}
	if c.Multiplier < 1 {
		return c, errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Do",
			"multiplier must be at least 1")
	}
	if c.MaxDelay < c.InitialDelay {
		return c, errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Do",
			"max delay must cover the initial delay")
	}
	return c, nil
}

// Do executes fn with exponential backoff. Only failures the errors package
// classifies as transient are retried; any other error returns immediately.
// Once attempts are exhausted the last error is wrapped, keeping its class
// visible to callers that retry at a higher level.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := delay
		if quarter := delay / 4; cfg.AddJitter && quarter > 0 {
			sleep += rand.N(quarter)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), "retry", "Do",
				fmt.Sprintf("backoff before attempt %d", attempt+1))
		case <-timer.C:
		}

		// Overflow-safe: an oversized product lands on the ceiling.
		next := float64(delay) * cfg.Multiplier
		if next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}

	return errors.Wrap(lastErr, "retry", "Do",
		fmt.Sprintf("%d attempts", cfg.MaxAttempts))
}
