package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/citevet/citevet/errors"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    false, // Disable for predictable tests
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.ErrQueueFull
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsOnNonTransient(t *testing.T) {
	ctx := context.Background()
	rejection := errors.WrapInvalid(errors.ErrInvalidName, "registry", "Register",
		"name check")

	attempts := 0
	err := Do(ctx, DefaultConfig(), func() error {
		attempts++
		return rejection
	})

	assert.Equal(t, 1, attempts, "non-transient errors must not be retried")
	assert.ErrorIs(t, err, errors.ErrInvalidName)
	assert.True(t, errors.IsInvalid(err))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    false,
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.ErrQueueFull
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "3 attempts failed")
	assert.ErrorIs(t, err, errors.ErrQueueFull)
	assert.True(t, errors.IsTransient(err), "exhaustion must keep the class visible")
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		AddJitter:    false,
	}

	attempts := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel() // Cancel during backoff
	}()

	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.ErrQueueFull
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "backoff before attempt")
	assert.Less(t, attempts, 5)
}

func TestDo_BackoffTiming(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    false,
	}

	start := time.Now()
	attempts := 0

	_ = Do(ctx, cfg, func() error {
		attempts++
		return errors.ErrQueueFull
	})

	elapsed := time.Since(start)

	// Delays between attempts: 10ms + 20ms + 40ms = 70ms minimum.
	assert.GreaterOrEqual(t, elapsed, 70*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, 4, attempts)
}

func TestDo_MaxDelayCap(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Multiplier:   10.0,
		AddJitter:    false,
	}

	start := time.Now()

	_ = Do(ctx, cfg, func() error {
		return errors.ErrQueueFull
	})

	elapsed := time.Since(start)

	// Delays: 10ms + 25ms (capped) + 25ms (capped) = 60ms minimum.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestDo_ZeroValueConfigRunsOnce(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := Do(ctx, Config{}, func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative initial delay", Config{InitialDelay: -time.Second}},
		{"negative max delay", Config{MaxDelay: -time.Second}},
		{"shrinking multiplier", Config{Multiplier: 0.5}},
		{"ceiling below initial delay", Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempts := 0
			err := Do(ctx, tc.cfg, func() error {
				attempts++
				return nil
			})

			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.Equal(t, 0, attempts, "operation must not run with a bad config")
		})
	}
}

func TestDo_JitterStaysBounded(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: 40 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    true,
	}

	start := time.Now()
	_ = Do(ctx, cfg, func() error {
		return errors.ErrQueueFull
	})
	elapsed := time.Since(start)

	// One backoff of 40ms plus at most 25% jitter.
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.True(t, cfg.AddJitter)
}

func TestQuickConfig(t *testing.T) {
	cfg := Quick()
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, time.Second, cfg.MaxDelay)
}
