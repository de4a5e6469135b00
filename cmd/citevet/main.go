// Package main implements the entry point for the citevet command line
// tool. citevet validates batches of academic citations against registered
// citation-format strategies, optionally detects the best-matching format
// per batch, and reports aggregate statistics as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/citevet/citevet/config"
	"github.com/citevet/citevet/errors"
	"github.com/citevet/citevet/metric"
	"github.com/citevet/citevet/pkg/cache"
	"github.com/citevet/citevet/pkg/retry"
	"github.com/citevet/citevet/pkg/worker"
	"github.com/citevet/citevet/strategy"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "citevet"
)

// Input line size cap.
const maxLineBytes = 4 << 20

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(1)
		}
	}()

	// Exit 2 for usage and configuration mistakes, 1 for runtime failures
	if err := run(); err != nil {
		exitCode := 1
		if errors.IsInvalid(err) {
			exitCode = 2
		}
		slog.Error("citevet failed", "error", err, "exit_code", exitCode)
		os.Exit(exitCode)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	level, format := loggingFor(cliCfg, cfg)
	logger := setupLogger(level, format)
	slog.SetDefault(logger)

	slog.Info("starting citevet",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"input", cliCfg.InputPath)

	if cliCfg.Validate {
		slog.Info("configuration valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	// Setup registry, metrics, and the built-in sample strategies
	metricsRegistry := metric.NewMetricsRegistry()
	registry, err := setupRegistry(cfg, logger, metricsRegistry)
	if err != nil {
		return err
	}

	// Process input with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, err := processBatches(ctx, cliCfg, registry, metricsRegistry)
	if err != nil {
		return err
	}

	if err := printSummary(os.Stdout, summary); err != nil {
		return err
	}

	if cliCfg.DumpMetrics {
		if err := metricsRegistry.WriteText(os.Stderr); err != nil {
			return fmt.Errorf("dump metrics: %w", err)
		}
	}

	slog.Info("citevet run complete",
		"batches", summary.Batches,
		"valid_batches", summary.ValidBatches)
	return nil
}

// initializeCLI parses flags and handles the version and help modes. Logger
// setup waits until the configuration loads so the file's logging section
// can apply.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, errors.WrapInvalid(err, "CLI", "initializeCLI", "flag validation")
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the configuration document. The loader
// validates by default, so a successful load is a valid document.
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, errors.WrapInvalid(err, "CLI", "initializeConfiguration", "config load")
	}
	return cfg, nil
}

// loggingFor merges logging flags over the config document. Flags win when
// set.
func loggingFor(cliCfg *CLIConfig, cfg *config.Config) (level, format string) {
	level, format = cfg.Logging.Level, cfg.Logging.Format
	if cliCfg.LogLevel != "" {
		level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		format = cliCfg.LogFormat
	}
	return level, format
}

// setupRegistry builds the strategy registry and installs the sample
// strategies.
func setupRegistry(
	cfg *config.Config,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) (*strategy.Registry, error) {
	registry, err := strategy.New(cfg.StrategyConfig(),
		strategy.WithLogger(logger),
		strategy.WithMetrics(metricsRegistry))
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	if err := registerSampleStrategies(registry); err != nil {
		return nil, fmt.Errorf("register sample strategies: %w", err)
	}

	formats := registry.Formats(false)
	names := make([]string, 0, len(formats))
	for _, info := range formats {
		names = append(names, info.Name)
	}
	slog.Info("format strategies registered", "count", len(names), "formats", names)

	return registry, nil
}

// batchJob is one JSONL input line scheduled onto the worker pool.
type batchJob struct {
	line      int
	citations []string
}

// processBatches streams the JSONL input through the worker pool and
// assembles the run summary.
func processBatches(
	ctx context.Context,
	cliCfg *CLIConfig,
	registry *strategy.Registry,
	metricsRegistry *metric.MetricsRegistry,
) (*runSummary, error) {
	start := time.Now()
	tally := &runTally{}
	formats := cliCfg.FormatList()

	handler := func(ctx context.Context, job batchJob) error {
		if cliCfg.Detect {
			name, ok := registry.DetectFormat(ctx, job.citations)
			tally.recordDetection(name, ok)
			return nil
		}

		name, best := bestOf(registry.ValidateAll(ctx, job.citations, formats...))
		if best == nil {
			slog.Debug("batch produced no results", "line", job.line)
		}
		tally.recordBatch(name, best)
		return nil
	}

	pool, err := worker.NewPool(cliCfg.Workers, cliCfg.QueueSize, handler,
		worker.WithMetrics[batchJob](metricsRegistry, "batch_validation"))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	if err := pool.Start(ctx); err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	input, err := openInput(cliCfg.InputPath)
	if err != nil {
		_ = pool.Stop(cliCfg.DrainTimeout)
		return nil, err
	}
	defer func() {
		if err := input.Close(); err != nil {
			slog.Warn("input close failed", "error", err)
		}
	}()

	readErr := feedBatches(ctx, input, pool, tally)
	if err := pool.Stop(cliCfg.DrainTimeout); err != nil {
		slog.Warn("worker pool drain incomplete", "error", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return tally.summary(cliCfg, registry, pool, time.Since(start)), nil
}

// openInput opens the JSONL source, with - meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return file, nil
}

// feedBatches parses JSONL lines and schedules them onto the pool.
// Malformed lines are skipped and counted; a full queue is retried with
// backoff until attempts run out or the context is cancelled.
func feedBatches(ctx context.Context, reader io.Reader, pool *worker.Pool[batchJob], tally *runTally) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	submitRetry := retry.Quick()

	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			slog.Info("input reading interrupted", "line", line)
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var citations []string
		if err := json.Unmarshal([]byte(text), &citations); err != nil {
			tally.recordMalformed()
			slog.Warn("skipping malformed input line", "line", line, "error", err)
			continue
		}
		if len(citations) == 0 {
			slog.Debug("skipping empty batch", "line", line)
			continue
		}

		job := batchJob{line: line, citations: citations}
		err := retry.Do(ctx, submitRetry, func() error {
			return pool.Submit(job)
		})
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("input reading interrupted", "line", line)
				break
			}
			return errors.Wrap(err, "CLI", "feedBatches", "batch submit")
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// bestOf picks the highest-confidence result. Ties break toward the
// lexicographically first format so repeated runs agree.
func bestOf(results map[string]*strategy.Result) (string, *strategy.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	var bestName string
	var best *strategy.Result
	for _, name := range names {
		result := results[name]
		if result == nil {
			continue
		}
		if best == nil || result.Confidence > best.Confidence {
			bestName, best = name, result
		}
	}
	return bestName, best
}

// runTally accumulates per-batch outcomes from concurrent pool workers.
type runTally struct {
	mu         sync.Mutex
	batches    int
	malformed  int
	valid      int
	noResult   int
	formatWins map[string]int
	detected   map[string]int
	undetected int
}

func (t *runTally) recordBatch(name string, best *strategy.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batches++
	if best == nil {
		t.noResult++
		return
	}
	if t.formatWins == nil {
		t.formatWins = make(map[string]int)
	}
	t.formatWins[name]++
	if best.IsValid {
		t.valid++
	}
}

func (t *runTally) recordDetection(name string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batches++
	if !ok {
		t.undetected++
		return
	}
	if t.detected == nil {
		t.detected = make(map[string]int)
	}
	t.detected[name]++
}

func (t *runTally) recordMalformed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.malformed++
}

func (t *runTally) summary(
	cliCfg *CLIConfig,
	registry *strategy.Registry,
	pool *worker.Pool[batchJob],
	elapsed time.Duration,
) *runSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return &runSummary{
		Input:          cliCfg.InputPath,
		DetectMode:     cliCfg.Detect,
		Batches:        t.batches,
		MalformedLines: t.malformed,
		ValidBatches:   t.valid,
		NoResult:       t.noResult,
		FormatWins:     t.formatWins,
		Detected:       t.detected,
		Undetected:     t.undetected,
		ElapsedMs:      elapsed.Seconds() * 1000,
		Statistics:     registry.Snapshot(),
		Cache:          registry.CacheStats(),
		Pool:           pool.Stats(),
		Formats:        registry.Formats(true),
	}
}

// runSummary is the JSON document printed to stdout after a run.
type runSummary struct {
	Input          string                `json:"input"`
	DetectMode     bool                  `json:"detect_mode"`
	Batches        int                   `json:"batches"`
	MalformedLines int                   `json:"malformed_lines,omitempty"`
	ValidBatches   int                   `json:"valid_batches"`
	NoResult       int                   `json:"no_result,omitempty"`
	FormatWins     map[string]int        `json:"format_wins,omitempty"`
	Detected       map[string]int        `json:"detected,omitempty"`
	Undetected     int                   `json:"undetected,omitempty"`
	ElapsedMs      float64               `json:"elapsed_ms"`
	Statistics     strategy.Statistics   `json:"statistics"`
	Cache          cache.StatsSummary    `json:"cache"`
	Pool           worker.PoolStats      `json:"pool"`
	Formats        []strategy.FormatInfo `json:"formats"`
}

// printSummary writes the indented JSON document.
func printSummary(w io.Writer, summary *runSummary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}
