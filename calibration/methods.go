package calibration

import "math"

// logitEpsilon bounds probabilities away from 0 and 1 before the logit
// transform so it never produces an infinity.
const logitEpsilon = 1e-6

// simpleFloorCoefficient scales the (1-quality) margin that keeps simple
// calibration away from zero when evidence is weak.
const simpleFloorCoefficient = 0.1

// clamp01 clamps x to [0,1]. NaN maps to 0.
func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// sigmoid is the standard logistic function.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// logit is the inverse logistic function with epsilon clamping.
func logit(p float64) float64 {
	if p < logitEpsilon {
		p = logitEpsilon
	}
	if p > 1-logitEpsilon {
		p = 1 - logitEpsilon
	}
	return math.Log(p / (1 - p))
}

// zScore returns the standard normal quantile for the supported interval
// levels. Unknown levels fall back to the 95% quantile.
func zScore(level float64) float64 {
	switch level {
	case 0.90:
		return 1.645
	case 0.99:
		return 2.576
	default:
		return 1.96
	}
}

// temperatureScale rescales the raw logit by temperature. A temperature of
// 1 is the identity, above 1 pulls scores toward 0.5, below 1 sharpens them.
func temperatureScale(raw, temperature float64) float64 {
	if temperature <= 0 {
		temperature = 1.0
	}
	return sigmoid(logit(raw) / temperature)
}

// plattScale applies the learned affine transform in logit space.
func plattScale(raw, a, b float64) float64 {
	return sigmoid(a*logit(raw) + b)
}

// bayesianCalibrate computes the Beta-posterior mean. The raw score and
// evidence quality weight the sample size into success/failure pseudo-counts;
// zero effective evidence leaves the prior mean.
func bayesianCalibrate(raw, quality float64, sampleSize int, priorAlpha, priorBeta float64) float64 {
	n := float64(sampleSize)
	if n < 0 {
		n = 0
	}
	successes := raw * quality * n
	failures := (1 - raw) * quality * n
	return (priorAlpha + successes) / (priorAlpha + priorBeta + successes + failures)
}

// histogramCalibrate blends the bin's historical accuracy with the raw score.
// A bin with no history cannot calibrate and returns the raw score unchanged.
func histogramCalibrate(raw, binAccuracy float64, binCount int, smoothing float64) float64 {
	if binCount == 0 {
		return raw
	}
	return smoothing*raw + (1-smoothing)*binAccuracy
}

// binIndex maps a probability to its equal-width bin.
func binIndex(p float64, bins int) int {
	idx := int(p * float64(bins))
	if idx >= bins {
		idx = bins - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// ensembleCalibrate combines the parametric outputs with weights proportional
// to each output's own confidence, renormalized over the finite ones. It
// returns false when no member produced a usable value.
func ensembleCalibrate(members []float64) (float64, bool) {
	var weighted, total float64
	finite := 0
	for _, m := range members {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			continue
		}
		finite++
		weighted += m * m
		total += m
	}
	if finite == 0 {
		return 0, false
	}
	if total < 1e-12 {
		// All members are effectively zero; an unweighted mean avoids a
		// division blow-up and still reports near-zero confidence.
		return 0, true
	}
	return weighted / total, true
}

// simpleCalibrate is the non-parametric fallback: the raw score scaled by
// evidence quality and sample-size saturation, floored by a margin that grows
// as evidence quality drops.
func simpleCalibrate(raw, quality float64, sampleSize int) float64 {
	n := float64(sampleSize)
	if n < 0 {
		n = 0
	}
	saturation := math.Min(1, math.Log10(n+1))
	calibrated := raw * (0.5 + 0.5*quality) * saturation

	floor := simpleFloorCoefficient * (1 - quality)
	if calibrated < floor {
		calibrated = floor
	}
	return calibrated
}

// ruleMultiplier maps an evidence rule type to its reliability multiplier.
func ruleMultiplier(ruleType string) float64 {
	switch ruleType {
	case RuleExpert:
		return 1.0
	case RulePattern:
		return 0.8
	case RuleHeuristic:
		return 0.6
	default:
		return 1.0
	}
}

// evidenceQuality aggregates evidence items into a single quality score in
// [0,1]. Each item contributes its own confidence scaled by the rule-type
// multiplier and a context richness factor; the result is the mean over all
// items, or 0 with no evidence.
func evidenceQuality(evidence []Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, item := range evidence {
		richness := 0.7 + 0.3*math.Min(1, float64(len(item.Context))/5.0)
		sum += clamp01(item.Confidence) * ruleMultiplier(item.RuleType) * richness
	}
	return clamp01(sum / float64(len(evidence)))
}
