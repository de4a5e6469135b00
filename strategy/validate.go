package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultBestMatchThreshold is the minimum confidence BestMatch accepts
// when the caller passes a non-positive threshold.
const DefaultBestMatchThreshold = 0.7

// Validation statuses recorded per result.
const (
	statusValid   = "valid"
	statusInvalid = "invalid"
	statusError   = "error"
	statusPanic   = "panic"
)

// ValidateAll validates a citation batch against multiple formats
// concurrently and returns one result per format. With no formats named,
// every enabled strategy runs, highest priority first. A strategy that
// errors or panics yields a degraded result for that format only; the batch
// never aborts. Every result is folded into statistics and metrics.
func (r *Registry) ValidateAll(ctx context.Context, citations []string, formats ...string) map[string]*Result {
	log := r.logger.With("run_id", uuid.NewString())

	if len(citations) == 0 {
		log.Warn("empty citation batch")
		return map[string]*Result{}
	}

	runs := r.snapshotEnabled(formats)
	if len(runs) == 0 {
		log.Warn("no strategies available", "requested", formats)
		return map[string]*Result{}
	}

	log.Debug("validation run starting", "formats", len(runs), "citations", len(citations))
	return r.validateConcurrently(ctx, log, citations, runs)
}

// BestMatch validates against all enabled formats and returns the one with
// the highest confidence at or above the threshold. A non-positive
// threshold means DefaultBestMatchThreshold. Returns ("", nil) when no
// format qualifies.
func (r *Registry) BestMatch(ctx context.Context, citations []string, threshold float64) (string, *Result) {
	if threshold <= 0 {
		threshold = DefaultBestMatchThreshold
	}

	results := r.ValidateAll(ctx, citations)

	var bestName string
	var best *Result
	for name, result := range results {
		if result.Confidence < threshold {
			continue
		}
		if best == nil || result.Confidence > best.Confidence ||
			(result.Confidence == best.Confidence && name < bestName) {
			bestName, best = name, result
		}
	}
	return bestName, best
}

// validateConcurrently fans the batch out to the snapshotted strategies.
// One goroutine per strategy, bounded by MaxConcurrentValidations; no lock
// is held while any strategy runs.
func (r *Registry) validateConcurrently(
	ctx context.Context, log *slog.Logger, citations []string, runs []runStrategy,
) map[string]*Result {
	results := make(map[string]*Result, len(runs))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxConcurrentValidations)

	for _, run := range runs {
		g.Go(func() error {
			result, status, elapsed := r.runOne(gctx, run, citations)
			r.recordOutcome(run.name, result, status, elapsed)

			if status == statusError || status == statusPanic {
				log.Warn("strategy validation degraded",
					"format", run.name, "status", status, "errors", result.Errors)
			}

			resultsMu.Lock()
			results[run.name] = result
			resultsMu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; degraded outcomes land in results.
	_ = g.Wait()

	return results
}

// runOne constructs and runs a single strategy against the batch, turning
// any error or panic into a degraded result.
func (r *Registry) runOne(
	ctx context.Context, run runStrategy, citations []string,
) (result *Result, status string, elapsed time.Duration) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			elapsed = time.Since(start)
			result = degradedResult(run.name, len(citations), elapsed,
				fmt.Sprintf("panic: %v", rec))
			status = statusPanic
		}
	}()

	if err := ctx.Err(); err != nil {
		elapsed = time.Since(start)
		return degradedResult(run.name, len(citations), elapsed, err.Error()), statusError, elapsed
	}

	instance, err := run.factory()
	if err != nil {
		elapsed = time.Since(start)
		return degradedResult(run.name, len(citations), elapsed,
			fmt.Sprintf("construction failed: %v", err)), statusError, elapsed
	}
	if instance == nil {
		elapsed = time.Since(start)
		return degradedResult(run.name, len(citations), elapsed,
			"construction returned no strategy"), statusError, elapsed
	}

	validated, err := instance.Validate(ctx, citations)
	elapsed = time.Since(start)
	if err != nil {
		return degradedResult(run.name, len(citations), elapsed,
			fmt.Sprintf("validation failed: %v", err)), statusError, elapsed
	}
	if validated == nil {
		return degradedResult(run.name, len(citations), elapsed,
			"validation returned no result"), statusError, elapsed
	}

	validated = normalizeResult(validated, run.name, len(citations), elapsed)
	if validated.IsValid {
		return validated, statusValid, elapsed
	}
	return validated, statusInvalid, elapsed
}
