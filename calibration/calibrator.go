package calibration

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citevet/citevet/errors"
	"github.com/citevet/citevet/metric"
)

const (
	// refitMinimum is the history size at which parameter refitting begins.
	refitMinimum = 10

	// refitWindow is the maximum number of recent samples used per refit.
	refitWindow = 50

	// plattLearningRate scales the single gradient step applied to the
	// Platt parameters on each refit.
	plattLearningRate = 0.1
)

// temperatureGrid is the candidate set searched on each refit.
var temperatureGrid = []float64{0.5, 0.8, 1.0, 1.2, 1.5, 2.0}

// Calibrator turns raw confidence scores into calibrated ones and learns
// from labeled feedback over time. All methods are safe for concurrent use.
type Calibrator struct {
	config  Config
	logger  *slog.Logger
	metrics *metric.Metrics

	mu          sync.RWMutex
	history     []Sample
	temperature float64
	plattA      float64
	plattB      float64

	// methodCounts is fully populated at construction and the map itself is
	// never mutated afterward, so the atomic values can be updated without
	// holding the lock.
	methodCounts map[Method]*atomic.Uint64
}

// learnedParams is the snapshot of mutable state one calibration runs
// against after the read lock is released.
type learnedParams struct {
	temperature float64
	plattA      float64
	plattB      float64
	binAccuracy float64
	binCount    int
}

// New creates a calibrator. Zero-valued config fields take their defaults;
// the temperature starts at 1 and the Platt transform at identity, so an
// unlearned calibrator is a near-identity transform.
func New(config Config, options ...Option) (*Calibrator, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "calibration", "New", "config validation")
	}

	opts := applyOptions(options...)
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	counts := make(map[Method]*atomic.Uint64, 6)
	for _, m := range []Method{
		MethodTemperature, MethodPlatt, MethodBayesian,
		MethodHistogram, MethodEnsemble, MethodSimple,
	} {
		counts[m] = &atomic.Uint64{}
	}

	return &Calibrator{
		config:       config,
		logger:       logger.With("component", "calibrator"),
		metrics:      opts.metrics,
		temperature:  1.0,
		plattA:       1.0,
		plattB:       0.0,
		methodCounts: counts,
	}, nil
}

// Calibrate computes a calibrated confidence for the request. It never
// panics or returns an error: malformed numeric inputs are clamped, an
// unknown method falls back to the configured default, and every surfaced
// confidence lands in [0,1].
func (c *Calibrator) Calibrate(req Request) Result {
	raw := clamp01(req.RawConfidence)
	quality := evidenceQuality(req.Evidence)
	sampleSize := req.SampleSize
	if sampleSize < 0 {
		sampleSize = 0
	}

	method := req.Method
	if _, err := ParseMethod(string(method)); err != nil {
		method = c.config.DefaultMethod
	}

	// Snapshot learned state; history-derived values are computed under the
	// read lock and the numeric work below runs outside it.
	c.mu.RLock()
	params := learnedParams{
		temperature: c.temperature,
		plattA:      c.plattA,
		plattB:      c.plattB,
	}
	historical := c.historicalAccuracyLocked(raw, req.FormatName)
	if method == MethodHistogram {
		params.binAccuracy, params.binCount = c.binAccuracyLocked(raw)
	}
	c.mu.RUnlock()

	calibrated, used := c.dispatch(method, raw, quality, sampleSize, params)
	calibrated = clamp01(calibrated)

	shift := calibrated - raw
	delta := math.Abs(shift)

	uncertainty := math.Sqrt(delta*delta +
		0.5*(1-quality)*(1-quality) +
		0.3/(float64(sampleSize)+1) +
		0.2*c.config.ModelUncertainty*c.config.ModelUncertainty)
	if uncertainty > 0.5 {
		uncertainty = 0.5
	}

	margin := zScore(c.config.IntervalLevel) * uncertainty
	interval := &Interval{
		Lower: clamp01(calibrated - margin),
		Upper: clamp01(calibrated + margin),
		Level: c.config.IntervalLevel,
	}

	reliability := clamp01(0.4*quality +
		0.3*historical +
		0.2*math.Min(1, float64(sampleSize)/10.0) +
		0.1*(1-2*math.Abs(0.5-calibrated)))

	c.methodCounts[used].Add(1)
	if c.metrics != nil {
		c.metrics.RecordCalibration(string(used), shift)
	}

	return Result{
		CalibratedConfidence: calibrated,
		RawConfidence:        raw,
		Method:               used,
		Interval:             interval,
		ReliabilityScore:     reliability,
		UncertaintyEstimate:  uncertainty,
		CalibrationStrength:  delta,
		EvidenceQuality:      quality,
		HistoricalAccuracy:   historical,
	}
}

// dispatch runs the selected method and reports which method actually
// produced the output.
func (c *Calibrator) dispatch(
	method Method,
	raw, quality float64,
	sampleSize int,
	params learnedParams,
) (float64, Method) {
	switch method {
	case MethodTemperature:
		return temperatureScale(raw, params.temperature), MethodTemperature
	case MethodPlatt:
		return plattScale(raw, params.plattA, params.plattB), MethodPlatt
	case MethodBayesian:
		return bayesianCalibrate(raw, quality, sampleSize, c.config.PriorAlpha, c.config.PriorBeta), MethodBayesian
	case MethodHistogram:
		return histogramCalibrate(raw, params.binAccuracy, params.binCount, c.config.Smoothing), MethodHistogram
	case MethodEnsemble:
		members := []float64{
			temperatureScale(raw, params.temperature),
			plattScale(raw, params.plattA, params.plattB),
			bayesianCalibrate(raw, quality, sampleSize, c.config.PriorAlpha, c.config.PriorBeta),
		}
		if combined, ok := ensembleCalibrate(members); ok {
			return combined, MethodEnsemble
		}
		return simpleCalibrate(raw, quality, sampleSize), MethodSimple
	default:
		return simpleCalibrate(raw, quality, sampleSize), MethodSimple
	}
}

// historicalAccuracyLocked averages the observed accuracy of past samples
// whose raw confidence lies within ±0.1 of raw, optionally scoped to one
// format. Returns 0.5 when no history applies. Callers must hold at least
// the read lock.
func (c *Calibrator) historicalAccuracyLocked(raw float64, formatName string) float64 {
	var sum float64
	count := 0
	for i := range c.history {
		s := &c.history[i]
		if math.Abs(s.RawConfidence-raw) > 0.1 {
			continue
		}
		if formatName != "" && s.FormatName != formatName {
			continue
		}
		sum += s.ActualAccuracy
		count++
	}
	if count == 0 {
		return 0.5
	}
	return sum / float64(count)
}

// binAccuracyLocked averages the observed accuracy of past samples falling
// in the same equal-width bin as raw. Callers must hold at least the read
// lock.
func (c *Calibrator) binAccuracyLocked(raw float64) (float64, int) {
	idx := binIndex(raw, c.config.Bins)
	var sum float64
	count := 0
	for i := range c.history {
		if binIndex(c.history[i].RawConfidence, c.config.Bins) != idx {
			continue
		}
		sum += c.history[i].ActualAccuracy
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// AddSample appends one labeled feedback point. Once the history holds at
// least ten samples, every append also refits the temperature and Platt
// parameters against the most recent window.
func (c *Calibrator) AddSample(raw, actual float64, formatName string, sampleSize int) {
	if sampleSize < 0 {
		sampleSize = 0
	}
	sample := Sample{
		RawConfidence:  clamp01(raw),
		ActualAccuracy: clamp01(actual),
		FormatName:     formatName,
		SampleSize:     sampleSize,
		Timestamp:      time.Now(),
	}

	c.mu.Lock()
	c.history = append(c.history, sample)
	if len(c.history) > c.config.HistoryLimit {
		// Copy so the backing array does not pin dropped samples
		trimmed := make([]Sample, c.config.HistoryLimit)
		copy(trimmed, c.history[len(c.history)-c.config.HistoryLimit:])
		c.history = trimmed
	}
	refit := len(c.history) >= refitMinimum
	if refit {
		c.refitLocked()
	}
	size := len(c.history)
	temperature, plattA, plattB := c.temperature, c.plattA, c.plattB
	c.mu.Unlock()

	if refit {
		c.logger.Debug("calibration parameters refit",
			"history_size", size,
			"temperature", temperature,
			"platt_a", plattA,
			"platt_b", plattB)
	}
}

// refitLocked refits the temperature by grid search and applies one
// log-loss gradient step to the Platt parameters, both against the most
// recent samples. Callers must hold the write lock.
func (c *Calibrator) refitLocked() {
	window := c.history
	if len(window) > refitWindow {
		window = window[len(window)-refitWindow:]
	}

	best := c.temperature
	bestMAE := math.Inf(1)
	for _, t := range temperatureGrid {
		mae := temperatureMAE(window, t)
		if mae < bestMAE {
			bestMAE = mae
			best = t
		}
	}
	c.temperature = best

	var gradA, gradB float64
	for i := range window {
		x := logit(window[i].RawConfidence)
		p := sigmoid(c.plattA*x + c.plattB)
		diff := p - window[i].ActualAccuracy
		gradA += diff * x
		gradB += diff
	}
	n := float64(len(window))
	a := c.plattA - plattLearningRate*gradA/n
	b := c.plattB - plattLearningRate*gradB/n
	if !math.IsNaN(a) && !math.IsInf(a, 0) && !math.IsNaN(b) && !math.IsInf(b, 0) {
		c.plattA = a
		c.plattB = b
	}
}

// temperatureMAE is the mean absolute error of temperature scaling at t
// over the given samples.
func temperatureMAE(samples []Sample, t float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for i := range samples {
		predicted := temperatureScale(samples[i].RawConfidence, t)
		sum += math.Abs(predicted - samples[i].ActualAccuracy)
	}
	return sum / float64(len(samples))
}

// Summary reports history size, per-method usage, learned parameters, and
// the temperature model's error over the current refit window.
func (c *Calibrator) Summary() Summary {
	c.mu.RLock()
	window := c.history
	if len(window) > refitWindow {
		window = window[len(window)-refitWindow:]
	}
	summary := Summary{
		HistorySize:       len(c.history),
		Temperature:       c.temperature,
		PlattA:            c.plattA,
		PlattB:            c.plattB,
		MeanAbsoluteError: temperatureMAE(window, c.temperature),
		DefaultMethod:     c.config.DefaultMethod,
	}
	c.mu.RUnlock()

	counts := make(map[Method]uint64, len(c.methodCounts))
	for m, v := range c.methodCounts {
		counts[m] = v.Load()
	}
	summary.MethodCounts = counts
	return summary
}
