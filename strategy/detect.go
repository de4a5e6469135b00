package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Detection score weights. Confidence dominates; priority and track record
// break ties between formats that both claim the batch.
const (
	detectionConfidenceWeight = 0.6
	detectionPriorityWeight   = 0.2
	detectionSuccessWeight    = 0.2
)

// Detection metric outcomes.
const (
	detectionCacheHit = "cache_hit"
	detectionDetected = "detected"
	detectionNoMatch  = "no_match"
)

// DetectFormat identifies which registered format best matches a citation
// batch. Every enabled strategy validates the batch; each is scored as
// 0.6·confidence + 0.2·(priority/100) + 0.2·success_rate and the best
// format is returned and cached only when its score exceeds the detection
// threshold. Cached detections are revalidated against the current registry
// state, so a format that was disabled or unregistered after being cached
// is never returned.
func (r *Registry) DetectFormat(ctx context.Context, citations []string) (string, bool) {
	log := r.logger.With("run_id", uuid.NewString())

	if len(citations) == 0 {
		log.Warn("empty citation batch")
		return "", false
	}
	key := r.detectionKey(citations)

	// Cache lookup, staleness check, and stale eviction form one compound
	// operation under the structural lock.
	r.mu.Lock()
	if name, ok := r.detection.Get(key); ok {
		if e, present := r.entries[name]; present && e.enabled {
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.RecordDetection(detectionCacheHit)
			}
			log.Debug("format detected from cache", "format", name)
			return name, true
		}
		if _, err := r.detection.Delete(key); err != nil {
			log.Warn("stale detection entry removal failed", "error", err)
		}
	}
	r.mu.Unlock()

	runs := r.snapshotEnabled(nil)
	if len(runs) == 0 {
		if r.metrics != nil {
			r.metrics.RecordDetection(detectionNoMatch)
		}
		log.Warn("no strategies available for detection")
		return "", false
	}

	log.Debug("detection run starting", "formats", len(runs), "citations", len(citations))
	results := r.validateConcurrently(ctx, log, citations, runs)

	// runs is priority-descending and name-stable, so the first best score
	// wins deterministically.
	var bestName string
	var bestScore float64
	for _, run := range runs {
		result, ok := results[run.name]
		if !ok {
			continue
		}
		score := detectionConfidenceWeight*result.Confidence +
			detectionPriorityWeight*(float64(run.priority)/100) +
			detectionSuccessWeight*run.successRate
		log.Debug("format scored",
			"format", run.name, "score", score, "confidence", result.Confidence)
		if bestName == "" || score > bestScore {
			bestName, bestScore = run.name, score
		}
	}

	if bestName == "" || bestScore <= r.config.DetectionThreshold {
		if r.metrics != nil {
			r.metrics.RecordDetection(detectionNoMatch)
		}
		log.Debug("no format above detection threshold",
			"best_format", bestName, "best_score", bestScore)
		return "", false
	}

	r.mu.Lock()
	if _, err := r.detection.Set(key, bestName); err != nil {
		log.Warn("detection cache store failed", "error", err)
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordDetection(detectionDetected)
	}
	log.Info("format detected", "format", bestName, "score", bestScore)
	return bestName, true
}

// detectionKey digests the batch prefix into a cache key. Citations are
// separated by a NUL byte so shifted boundaries cannot collide. Batches
// sharing the first DetectionPrefix citations share a key unless
// DetectionFullBatch keys on the whole batch.
func (r *Registry) detectionKey(citations []string) string {
	prefix := citations
	if !r.config.DetectionFullBatch && len(prefix) > r.config.DetectionPrefix {
		prefix = prefix[:r.config.DetectionPrefix]
	}

	digest := sha256.New()
	for _, citation := range prefix {
		digest.Write([]byte(citation))
		digest.Write([]byte{0})
	}
	return hex.EncodeToString(digest.Sum(nil))
}
