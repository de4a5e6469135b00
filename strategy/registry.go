package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/citevet/citevet/errors"
	"github.com/citevet/citevet/metric"
	"github.com/citevet/citevet/pkg/cache"
)

// Registry owns the mapping from format name to validation strategy. It
// performs security-gated registration, constructs strategies on lookup,
// fans out multi-format validation, auto-detects formats, and tracks
// statistics.
//
// Lock discipline: the structural lock guards the strategy table and all
// detection cache mutation; the statistics tracker carries its own lock.
// The structural lock may be held while taking the statistics lock, never
// the reverse, and no strategy Validate call ever runs under either.
type Registry struct {
	config  Config
	logger  *slog.Logger
	metrics *metric.Metrics

	mu      sync.RWMutex
	entries map[string]*entry

	stats *statsTracker

	// detection maps citation batch digests to format names. Mutated only
	// under the structural lock; see doc.go.
	detection cache.Cache[string]

	// securityLog caps how often registration rejections are logged, so a
	// hostile caller cannot flood the log.
	securityLog *rate.Limiter

	// origin resolves a factory's declaring package path. Replaceable for
	// tests.
	origin func(Factory) string
}

// New creates a Registry with the given configuration.
func New(config Config, options ...Option) (*Registry, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "StrategyRegistry", "New", "config validation")
	}

	opts := applyOptions(options...)
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "strategy_registry")

	var detection cache.Cache[string]
	if config.DisableCache {
		detection = cache.NewNoop[string]()
	} else {
		var cacheOpts []cache.Option[string]
		if opts.metrics != nil {
			cacheOpts = append(cacheOpts, cache.WithMetrics[string](opts.metrics, "detection_cache"))
		}
		var err error
		detection, err = cache.New(config.CacheSize, config.CacheTTL, cacheOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "StrategyRegistry", "New", "detection cache construction")
		}
	}

	var core *metric.Metrics
	if opts.metrics != nil {
		core = opts.metrics.CoreMetrics()
	}

	return &Registry{
		config:      config,
		logger:      logger,
		metrics:     core,
		entries:     make(map[string]*entry),
		stats:       newStatsTracker(config.MaxFormatEntries, config.MaxErrorPatterns, config.CleanupFactor),
		detection:   detection,
		securityLog: rate.NewLimiter(rate.Limit(1), 5),
		origin:      factoryOrigin,
	}, nil
}

// Register adds a format strategy to the registry. Registration is
// fail-soft: it reports success or failure as a boolean and logs the reason
// for a rejection instead of returning it. Use RegisterWithReason when the
// caller needs the classified error.
//
// Re-registering the same factory under the same name is idempotent and
// refreshes priority, enabled state, and the registration timestamp.
func (r *Registry) Register(registration Registration) bool {
	return r.RegisterWithReason(registration) == nil
}

// RegisterWithReason is Register with the rejection reason returned.
func (r *Registry) RegisterWithReason(registration Registration) error {
	if err := r.vetRegistration(registration); err != nil {
		r.rejectRegistration(registration, err)
		return err
	}

	name := strings.ToLower(registration.Descriptor.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		if !sameFactory(existing.factory, registration.Factory) {
			err := errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrDuplicateStrategy, name),
				"StrategyRegistry", "Register", "duplicate name check")
			r.rejectRegistration(registration, err)
			return err
		}
		existing.priority = registration.Priority
		existing.enabled = registration.Enabled
		existing.registeredAt = time.Now()
		if r.metrics != nil {
			r.metrics.RecordRegistration("updated")
		}
		r.logger.Debug("strategy registration refreshed",
			"format", name, "priority", registration.Priority, "enabled", registration.Enabled)
		return nil
	}

	r.entries[name] = &entry{
		descriptor:   registration.Descriptor,
		factory:      registration.Factory,
		priority:     registration.Priority,
		enabled:      registration.Enabled,
		registeredAt: time.Now(),
		successRate:  0.5, // prior until the first recorded outcome
	}
	r.stats.seedFormat(name)

	if r.metrics != nil {
		r.metrics.RecordRegistration("registered")
		r.metrics.SetStrategies(len(r.entries))
	}
	r.logger.Info("strategy registered",
		"format", name,
		"version", registration.Descriptor.Version,
		"priority", registration.Priority,
		"enabled", registration.Enabled)
	return nil
}

// vetRegistration runs the registration gate. Checks run cheapest first and
// every failure carries a sentinel the caller can test with errors.Is.
func (r *Registry) vetRegistration(registration Registration) error {
	if registration.Factory == nil {
		return errors.WrapInvalid(
			errors.ErrNilFactory, "StrategyRegistry", "Register", "factory validation")
	}
	if err := ValidateFormatName(registration.Descriptor.Name); err != nil {
		return errors.Wrap(err, "StrategyRegistry", "Register", "name validation")
	}
	if registration.Descriptor.Version == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: version", errors.ErrMissingConfig),
			"StrategyRegistry", "Register", "descriptor validation")
	}
	if len(registration.Descriptor.SupportedTypes) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: supported types", errors.ErrMissingConfig),
			"StrategyRegistry", "Register", "descriptor validation")
	}
	if origin := r.origin(registration.Factory); !originTrusted(origin, r.config.TrustedPrefixes) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUntrustedOrigin, origin),
			"StrategyRegistry", "Register", "origin validation")
	}
	if registration.Priority < 0 || registration.Priority > 100 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d", errors.ErrBadPriority, registration.Priority),
			"StrategyRegistry", "Register", "priority validation")
	}
	return nil
}

// rejectRegistration records a rejected registration. Logging is rate
// limited so repeated hostile attempts cannot flood the log; the metric
// always counts.
func (r *Registry) rejectRegistration(registration Registration, err error) {
	if r.metrics != nil {
		r.metrics.RecordRegistration("rejected")
	}
	if r.securityLog.Allow() {
		r.logger.Warn("strategy registration rejected",
			"format", registration.Descriptor.Name, "error", err)
	}
}

// sameFactory reports whether two factories share the same function pointer.
func sameFactory(a, b Factory) bool {
	return factoryPointer(a) == factoryPointer(b)
}

// Get constructs a fresh instance of the named strategy. Each call builds a
// new instance; strategies are cheap and hold no state worth sharing. A
// successful lookup increments the strategy's usage count even if the
// factory subsequently fails.
func (r *Registry) Get(ctx context.Context, name string) (FormatStrategy, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "StrategyRegistry", "Get", "context check")
	}
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStrategyNotFound, key),
			"StrategyRegistry", "Get", "strategy lookup")
	}
	if !e.enabled {
		r.mu.Unlock()
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrStrategyDisabled, key),
			"StrategyRegistry", "Get", "strategy lookup")
	}
	factory := e.factory
	e.usageCount++
	now := time.Now()
	e.lastUsed = &now
	r.mu.Unlock()

	instance, err := factory()
	if err != nil {
		return nil, errors.Wrap(
			fmt.Errorf("%w: %w", errors.ErrStrategyConstruct, err),
			"StrategyRegistry", "Get", "strategy construction")
	}
	if instance == nil {
		return nil, errors.Wrap(
			fmt.Errorf("%w: factory returned nil", errors.ErrStrategyConstruct),
			"StrategyRegistry", "Get", "strategy construction")
	}
	return instance, nil
}

// Unregister removes a strategy and its format distribution entry, and
// clears the detection cache. Cache keys are opaque digests, so selective
// invalidation is not possible. Returns false if the name was not
// registered.
func (r *Registry) Unregister(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	r.clearDetectionLocked()
	r.stats.dropFormat(key)

	if r.metrics != nil {
		r.metrics.SetStrategies(len(r.entries))
	}
	r.logger.Info("strategy unregistered", "format", key)
	return true
}

// Enable marks a strategy as eligible for lookup, validation, and
// detection. Returns false if the name is not registered.
func (r *Registry) Enable(name string) bool {
	return r.setEnabled(name, true)
}

// Disable takes a strategy out of rotation and clears the detection cache
// so no cached detection keeps resolving to it. Returns false if the name
// is not registered.
func (r *Registry) Disable(name string) bool {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) bool {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return false
	}
	e.enabled = enabled
	if !enabled {
		r.clearDetectionLocked()
	}
	r.logger.Debug("strategy state changed", "format", key, "enabled", enabled)
	return true
}

// Formats lists registered formats in priority-descending order. Disabled
// formats are included only when includeDisabled is set.
func (r *Registry) Formats(includeDisabled bool) []FormatInfo {
	r.mu.RLock()
	infos := make([]FormatInfo, 0, len(r.entries))
	for name, e := range r.entries {
		if !e.enabled && !includeDisabled {
			continue
		}
		infos = append(infos, FormatInfo{
			Name:           name,
			Version:        e.descriptor.Version,
			SupportedTypes: slices.Clone(e.descriptor.SupportedTypes),
			Priority:       e.priority,
			Enabled:        e.enabled,
		})
	}
	r.mu.RUnlock()

	slices.SortFunc(infos, func(a, b FormatInfo) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// MetadataFor returns a copy of the registry's metadata for one format.
func (r *Registry) MetadataFor(name string) (Metadata, bool) {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return Metadata{}, false
	}

	meta := Metadata{
		Descriptor: Descriptor{
			Name:           e.descriptor.Name,
			Version:        e.descriptor.Version,
			SupportedTypes: slices.Clone(e.descriptor.SupportedTypes),
		},
		Priority:     e.priority,
		Enabled:      e.enabled,
		RegisteredAt: e.registeredAt,
		UsageCount:   e.usageCount,
		SuccessRate:  e.successRate,
	}
	if e.lastUsed != nil {
		used := *e.lastUsed
		meta.LastUsed = &used
	}
	return meta, true
}

// Snapshot returns a deep copy of the validation statistics.
func (r *Registry) Snapshot() Statistics {
	return r.stats.snapshot()
}

// ResetStatistics clears all validation statistics.
func (r *Registry) ResetStatistics() {
	r.stats.reset()
}

// ClearCache empties the detection cache.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearDetectionLocked()
}

// CacheStats reports detection cache counters. The zero summary is returned
// when caching is disabled.
func (r *Registry) CacheStats() cache.StatsSummary {
	stats := r.detection.Stats()
	if stats == nil {
		return cache.StatsSummary{}
	}
	return stats.Summary()
}

// clearDetectionLocked empties the detection cache. Callers hold the
// structural lock.
func (r *Registry) clearDetectionLocked() {
	if err := r.detection.Clear(); err != nil {
		r.logger.Warn("detection cache clear failed", "error", err)
	}
}

// snapshotEnabled copies out (name, factory, priority, success rate) for the
// strategies a validation run should touch, releasing the lock before any
// factory or Validate call. With no names given it returns every enabled
// strategy in priority-descending order; with names it preserves the
// caller's order and skips unknown or disabled formats.
func (r *Registry) snapshotEnabled(names []string) []runStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		runs := make([]runStrategy, 0, len(r.entries))
		for name, e := range r.entries {
			if !e.enabled {
				continue
			}
			runs = append(runs, runStrategy{
				name:        name,
				factory:     e.factory,
				priority:    e.priority,
				successRate: e.successRate,
			})
		}
		slices.SortFunc(runs, func(a, b runStrategy) int {
			if a.priority != b.priority {
				return b.priority - a.priority
			}
			return strings.Compare(a.name, b.name)
		})
		return runs
	}

	runs := make([]runStrategy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			continue
		}
		seen[key] = true
		e, ok := r.entries[key]
		if !ok || !e.enabled {
			r.logger.Debug("requested format unavailable", "format", key)
			continue
		}
		runs = append(runs, runStrategy{
			name:        key,
			factory:     e.factory,
			priority:    e.priority,
			successRate: e.successRate,
		})
	}
	return runs
}

// recordOutcome folds one validation result into statistics, the
// per-strategy success rate, and metrics. The result must be normalized.
func (r *Registry) recordOutcome(name string, result *Result, status string, elapsed time.Duration) {
	r.stats.record(result)

	r.mu.Lock()
	if e, ok := r.entries[name]; ok {
		outcome := 0.0
		if result.IsValid {
			outcome = 1.0
		}
		n := float64(e.outcomes)
		e.successRate = (e.successRate*n + outcome) / (n + 1)
		e.outcomes++
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordValidation(name, status)
		r.metrics.RecordValidationDuration(name, elapsed)
	}
}
