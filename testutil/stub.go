// Package testutil provides test doubles for the validation toolkit. It is
// imported only from tests and is not linked into the citevet binary.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/citevet/citevet/strategy"
)

// StubStrategy is a configurable FormatStrategy for tests. The zero value
// validates nothing; set Valid and Confidence for the outcome the test
// needs. One stub instance may back many registry lookups; Calls counts
// Validate invocations across all of them.
type StubStrategy struct {
	Name       string
	Version    string
	Types      []string
	Valid      bool
	Confidence float64
	Errs       []string
	Delay      time.Duration
	Err        error
	PanicMsg   string

	Calls atomic.Int64
}

// FormatName implements strategy.FormatStrategy.
func (s *StubStrategy) FormatName() string { return s.Name }

// FormatVersion implements strategy.FormatStrategy.
func (s *StubStrategy) FormatVersion() string {
	if s.Version == "" {
		return "1.0.0"
	}
	return s.Version
}

// SupportedTypes implements strategy.FormatStrategy.
func (s *StubStrategy) SupportedTypes() []string {
	if len(s.Types) == 0 {
		return []string{"article"}
	}
	return s.Types
}

// Validate implements strategy.FormatStrategy. It panics when PanicMsg is
// set, fails with Err when set, and otherwise reports the configured
// validity and confidence after an optional delay.
func (s *StubStrategy) Validate(ctx context.Context, citations []string) (*strategy.Result, error) {
	s.Calls.Add(1)

	if s.PanicMsg != "" {
		panic(s.PanicMsg)
	}
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	valid := 0
	if s.Valid {
		valid = len(citations)
	}
	return &strategy.Result{
		FormatName:     s.Name,
		IsValid:        s.Valid,
		Confidence:     s.Confidence,
		Errors:         s.Errs,
		TotalCitations: len(citations),
		ValidCitations: valid,
	}, nil
}

// Registration builds an enabled Registration whose factory hands out this
// stub, so tests can count calls on the shared instance.
func (s *StubStrategy) Registration(priority int) strategy.Registration {
	return strategy.Registration{
		Descriptor: strategy.Descriptor{
			Name:           s.Name,
			Version:        s.FormatVersion(),
			SupportedTypes: s.SupportedTypes(),
		},
		Factory:  func() (strategy.FormatStrategy, error) { return s, nil },
		Priority: priority,
		Enabled:  true,
	}
}

// Batch builds n distinct citation strings sharing a prefix.
func Batch(prefix string, n int) []string {
	citations := make([]string, n)
	for i := range citations {
		citations[i] = fmt.Sprintf("%s citation %d", prefix, i)
	}
	return citations
}

// SampleBatch returns a small batch of realistic citation strings.
func SampleBatch() []string {
	return []string{
		"Doe, J. (2021). Citation parsing at scale. Journal of Information Science, 47(3), 201-215.",
		"Smith, A., & Jones, B. (2019). Reference extraction from scholarly text. Computational Linguistics, 45(2), 325-360.",
		"Brown, C. (2020). Bibliographies and their discontents. New York: Academic Press.",
	}
}
