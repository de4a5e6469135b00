package strategy

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// maxErrorPatternLength caps stored error pattern tokens.
const maxErrorPatternLength = 32

// Statistics is a point-in-time snapshot of validation outcomes across all
// strategies. Both maps are deep copies owned by the caller.
type Statistics struct {
	Total               uint64            `json:"total"`
	Successful          uint64            `json:"successful"`
	Failed              uint64            `json:"failed"`
	AvgProcessingTimeMs float64           `json:"avg_processing_time_ms"`
	AvgConfidence       float64           `json:"avg_confidence"`
	FormatDistribution  map[string]uint64 `json:"format_distribution"`
	ErrorPatterns       map[string]uint64 `json:"error_patterns"`
}

// statsTracker accumulates validation statistics under its own lock so that
// recording outcomes never contends with structural registry operations.
type statsTracker struct {
	mu            sync.Mutex
	stats         Statistics
	maxFormats    int
	maxPatterns   int
	cleanupFactor float64
}

func newStatsTracker(maxFormats, maxPatterns int, cleanupFactor float64) *statsTracker {
	return &statsTracker{
		stats: Statistics{
			FormatDistribution: make(map[string]uint64),
			ErrorPatterns:      make(map[string]uint64),
		},
		maxFormats:    maxFormats,
		maxPatterns:   maxPatterns,
		cleanupFactor: cleanupFactor,
	}
}

// record folds one validation result into the running statistics. The result
// must already be normalized.
func (t *statsTracker) record(result *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total++
	if result.IsValid {
		t.stats.Successful++
	} else {
		t.stats.Failed++
	}

	// Incremental mean keeps the running averages exact without storing
	// per-result history.
	n := float64(t.stats.Total)
	t.stats.AvgConfidence += (result.Confidence - t.stats.AvgConfidence) / n
	t.stats.AvgProcessingTimeMs += (result.ProcessingTimeMs - t.stats.AvgProcessingTimeMs) / n

	name := strings.ToLower(result.FormatName)
	if name != "" {
		t.stats.FormatDistribution[name]++
		if len(t.stats.FormatDistribution) > t.maxFormats {
			trimToFrequent(t.stats.FormatDistribution, t.retain(t.maxFormats))
		}
	}

	for _, message := range result.Errors {
		pattern := errorPattern(message)
		if pattern == "" {
			continue
		}
		t.stats.ErrorPatterns[pattern]++
	}
	if len(t.stats.ErrorPatterns) > t.maxPatterns {
		trimToFrequent(t.stats.ErrorPatterns, t.retain(t.maxPatterns))
	}
}

// seedFormat ensures a format appears in the distribution with at least a
// zero count, so listings show registered-but-unused formats.
func (t *statsTracker) seedFormat(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.stats.FormatDistribution[name]; !ok {
		t.stats.FormatDistribution[name] = 0
	}
}

// dropFormat removes a format from the distribution on unregistration.
func (t *statsTracker) dropFormat(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats.FormatDistribution, name)
}

// snapshot returns a deep copy of the current statistics.
func (t *statsTracker) snapshot() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.FormatDistribution = make(map[string]uint64, len(t.stats.FormatDistribution))
	maps.Copy(out.FormatDistribution, t.stats.FormatDistribution)
	out.ErrorPatterns = make(map[string]uint64, len(t.stats.ErrorPatterns))
	maps.Copy(out.ErrorPatterns, t.stats.ErrorPatterns)
	return out
}

// reset clears all counters and tables.
func (t *statsTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Statistics{
		FormatDistribution: make(map[string]uint64),
		ErrorPatterns:      make(map[string]uint64),
	}
}

// retain is how many entries survive a cleanup pass of a table with the
// given cap.
func (t *statsTracker) retain(capacity int) int {
	kept := int(float64(capacity) * t.cleanupFactor)
	if kept < 1 {
		kept = 1
	}
	if kept > capacity {
		kept = capacity
	}
	return kept
}

// errorPattern reduces an error message to its first token, lowercased and
// length-capped, so the pattern table groups related failures.
func errorPattern(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return ""
	}
	token := strings.ToLower(fields[0])
	if len(token) > maxErrorPatternLength {
		token = token[:maxErrorPatternLength]
	}
	return token
}

// trimToFrequent drops all but the keep most frequent entries from a table.
// Ties break lexicographically so the pass is deterministic.
func trimToFrequent(table map[string]uint64, keep int) {
	if len(table) <= keep {
		return
	}
	type freq struct {
		key   string
		count uint64
	}
	entries := make([]freq, 0, len(table))
	for key, count := range table {
		entries = append(entries, freq{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	for _, entry := range entries[keep:] {
		delete(table, entry.key)
	}
}
