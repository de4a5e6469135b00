// Package calibration turns raw confidence scores into calibrated ones.
//
// # Overview
//
// Format validation produces raw confidence scores that rarely match true
// empirical accuracy: a validator claiming 0.9 confidence may be right only
// 70% of the time. The Calibrator corrects for that, producing a calibrated
// confidence, an uncertainty estimate, a confidence interval, and a
// reliability score, and it learns from labeled feedback as it accumulates.
//
// # Calibration Methods
//
// Six methods are available, selectable per request:
//
//   - temperature_scaling: sigmoid(logit(raw)/T) with a learned temperature T
//   - platt_scaling: sigmoid(A*logit(raw)+B) with learned A and B
//   - bayesian: Beta-posterior mean with evidence-weighted pseudo-counts
//   - histogram: blends raw with the historical accuracy of its bin
//   - ensemble: confidence-weighted mean of the three parametric methods
//   - simple: evidence-and-sample-size heuristic, used as the fallback
//
// An unlearned calibrator (temperature 1, Platt identity) is a near-identity
// transform, so calibration is safe to enable before any feedback exists.
//
// # Quick Start
//
//	cal, err := calibration.New(calibration.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := cal.Calibrate(calibration.Request{
//		RawConfidence: 0.85,
//		Evidence: []calibration.Evidence{
//			{RuleType: calibration.RuleExpert, Confidence: 0.9},
//		},
//		FormatName: "apa",
//		SampleSize: 40,
//	})
//	fmt.Println(result.CalibratedConfidence, result.Interval)
//
// Feedback closes the loop:
//
//	// Later, once the true accuracy of that batch is known
//	cal.AddSample(0.85, 0.72, "apa", 40)
//
// Once ten samples have accumulated, every AddSample refits the temperature
// (grid search) and Platt parameters (one gradient step) against the most
// recent window.
//
// # Robustness
//
// Calibrate never panics and never returns an error. NaN, infinite, and
// out-of-range numeric inputs are clamped; an unknown method falls back to
// the configured default; every surfaced confidence is in [0,1] and every
// uncertainty in [0,0.5].
//
// # Thread Safety
//
// All methods are safe for concurrent use. Calibrate snapshots learned
// state under a read lock and computes outside it, so calibrations proceed
// concurrently with each other and block only briefly against AddSample.
package calibration
