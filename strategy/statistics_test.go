package strategy

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
)

func TestErrorPattern(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Missing DOI in entry 3", "missing"},
		{"MALFORMED author list", "malformed"},
		{"  leading whitespace", "leading"},
		{"single", "single"},
		{"", ""},
		{"   ", ""},
		{strings.Repeat("x", 40) + " tail", strings.Repeat("x", 32)},
	}
	for _, tt := range tests {
		if got := errorPattern(tt.message); got != tt.want {
			t.Errorf("errorPattern(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestStatsTracker_Record(t *testing.T) {
	tracker := newStatsTracker(100, 50, 0.8)

	tracker.record(&Result{
		FormatName: "apa", IsValid: true, Confidence: 0.9, ProcessingTimeMs: 5.0,
	})
	tracker.record(&Result{
		FormatName: "APA", IsValid: false, Confidence: 0.4, ProcessingTimeMs: 15.0,
		Errors: []string{"Missing DOI", "Missing page range"},
	})

	stats := tracker.snapshot()
	if stats.Total != 2 || stats.Successful != 1 || stats.Failed != 1 {
		t.Errorf("totals = %d/%d/%d, want 2/1/1", stats.Total, stats.Successful, stats.Failed)
	}
	if math.Abs(stats.AvgConfidence-0.65) > 1e-9 {
		t.Errorf("AvgConfidence = %v, want 0.65", stats.AvgConfidence)
	}
	if math.Abs(stats.AvgProcessingTimeMs-10.0) > 1e-9 {
		t.Errorf("AvgProcessingTimeMs = %v, want 10.0", stats.AvgProcessingTimeMs)
	}
	// Format names fold to lower case.
	if stats.FormatDistribution["apa"] != 2 {
		t.Errorf("FormatDistribution[apa] = %d, want 2", stats.FormatDistribution["apa"])
	}
	if stats.ErrorPatterns["missing"] != 2 {
		t.Errorf("ErrorPatterns[missing] = %d, want 2", stats.ErrorPatterns["missing"])
	}
}

func TestStatsTracker_PatternTableBounded(t *testing.T) {
	tracker := newStatsTracker(100, 5, 0.8)

	// Five patterns with distinct frequencies, then a sixth to overflow.
	counts := map[string]int{"alpha": 10, "beta": 8, "gamma": 6, "delta": 4, "epsilon": 2}
	for pattern, n := range counts {
		for range n {
			tracker.record(&Result{FormatName: "apa", Errors: []string{pattern + " problem"}})
		}
	}
	tracker.record(&Result{FormatName: "apa", Errors: []string{"zeta problem"}})

	stats := tracker.snapshot()
	if len(stats.ErrorPatterns) > 5 {
		t.Fatalf("pattern table size = %d, want at most the cap 5", len(stats.ErrorPatterns))
	}
	// Cleanup keeps the most frequent entries: 80% of cap 5 is 4.
	if len(stats.ErrorPatterns) != 4 {
		t.Errorf("pattern table size after cleanup = %d, want 4", len(stats.ErrorPatterns))
	}
	for _, survivor := range []string{"alpha", "beta", "gamma", "delta"} {
		if _, ok := stats.ErrorPatterns[survivor]; !ok {
			t.Errorf("frequent pattern %q was trimmed", survivor)
		}
	}
	if _, ok := stats.ErrorPatterns["zeta"]; ok {
		t.Error("rare pattern zeta survived cleanup")
	}
}

func TestStatsTracker_FormatTableBounded(t *testing.T) {
	tracker := newStatsTracker(3, 50, 0.8)

	for name, n := range map[string]int{"apa": 5, "mla": 3, "chicago": 2} {
		for range n {
			tracker.record(&Result{FormatName: name, IsValid: true, Confidence: 0.9})
		}
	}
	tracker.record(&Result{FormatName: "ieee", IsValid: true, Confidence: 0.9})

	stats := tracker.snapshot()
	// 80% of cap 3 rounds down to 2 survivors.
	if len(stats.FormatDistribution) != 2 {
		t.Fatalf("format table size = %d, want 2", len(stats.FormatDistribution))
	}
	for _, survivor := range []string{"apa", "mla"} {
		if _, ok := stats.FormatDistribution[survivor]; !ok {
			t.Errorf("frequent format %q was trimmed", survivor)
		}
	}
}

func TestStatsTracker_SeedAndDrop(t *testing.T) {
	tracker := newStatsTracker(100, 50, 0.8)

	tracker.seedFormat("apa")
	if count, ok := tracker.snapshot().FormatDistribution["apa"]; !ok || count != 0 {
		t.Errorf("seeded entry = (%d, %v), want (0, true)", count, ok)
	}

	tracker.record(&Result{FormatName: "apa", IsValid: true, Confidence: 0.9})
	tracker.seedFormat("apa")
	if count := tracker.snapshot().FormatDistribution["apa"]; count != 1 {
		t.Errorf("re-seeding reset the count to %d, want 1 preserved", count)
	}

	tracker.dropFormat("apa")
	if _, ok := tracker.snapshot().FormatDistribution["apa"]; ok {
		t.Error("dropped format still present")
	}
}

func TestStatsTracker_SnapshotDeepCopy(t *testing.T) {
	tracker := newStatsTracker(100, 50, 0.8)
	tracker.record(&Result{FormatName: "apa", IsValid: true, Confidence: 0.9})

	stats := tracker.snapshot()
	stats.FormatDistribution["apa"] = 999
	stats.ErrorPatterns["fabricated"] = 1

	fresh := tracker.snapshot()
	if fresh.FormatDistribution["apa"] != 1 {
		t.Errorf("FormatDistribution[apa] = %d after snapshot mutation, want 1", fresh.FormatDistribution["apa"])
	}
	if _, ok := fresh.ErrorPatterns["fabricated"]; ok {
		t.Error("snapshot mutation leaked into the tracker")
	}
}

func TestStatsTracker_Reset(t *testing.T) {
	tracker := newStatsTracker(100, 50, 0.8)
	tracker.record(&Result{FormatName: "apa", IsValid: true, Confidence: 0.9, Errors: nil})
	tracker.record(&Result{FormatName: "mla", IsValid: false, Confidence: 0.2, Errors: []string{"bad author"}})

	tracker.reset()

	stats := tracker.snapshot()
	if stats.Total != 0 || stats.Successful != 0 || stats.Failed != 0 {
		t.Errorf("totals after reset = %d/%d/%d, want zeros", stats.Total, stats.Successful, stats.Failed)
	}
	if stats.AvgConfidence != 0 || stats.AvgProcessingTimeMs != 0 {
		t.Error("averages survived reset")
	}
	if len(stats.FormatDistribution) != 0 || len(stats.ErrorPatterns) != 0 {
		t.Error("tables survived reset")
	}
}

func TestStatsTracker_ConcurrentInvariant(t *testing.T) {
	tracker := newStatsTracker(100, 50, 0.8)

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perGoroutine {
				tracker.record(&Result{
					FormatName: fmt.Sprintf("format%d", g%4),
					IsValid:    i%2 == 0,
					Confidence: 0.5,
				})
			}
		}()
	}
	wg.Wait()

	stats := tracker.snapshot()
	wantTotal := uint64(goroutines * perGoroutine)
	if stats.Total != wantTotal {
		t.Errorf("Total = %d, want %d", stats.Total, wantTotal)
	}
	if stats.Successful+stats.Failed != stats.Total {
		t.Errorf("Successful+Failed = %d, want %d", stats.Successful+stats.Failed, stats.Total)
	}

	var distributed uint64
	for _, count := range stats.FormatDistribution {
		distributed += count
	}
	if distributed != wantTotal {
		t.Errorf("distribution sum = %d, want %d", distributed, wantTotal)
	}
}
