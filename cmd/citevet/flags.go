package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath   string
	InputPath    string
	Formats      string
	LogLevel     string
	LogFormat    string
	Detect       bool
	DumpMetrics  bool
	Workers      int
	QueueSize    int
	DrainTimeout time.Duration
	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("CITEVET_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: CITEVET_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("CITEVET_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: CITEVET_CONFIG)")

	flag.StringVar(&cfg.InputPath, "input",
		getEnv("CITEVET_INPUT", "-"),
		"Path to JSONL citation batches, - for stdin (env: CITEVET_INPUT)")

	flag.StringVar(&cfg.InputPath, "i",
		getEnv("CITEVET_INPUT", "-"),
		"Path to JSONL citation batches, - for stdin (env: CITEVET_INPUT)")

	flag.StringVar(&cfg.Formats, "formats",
		getEnv("CITEVET_FORMATS", ""),
		"Comma-separated format names to validate against, empty for all enabled (env: CITEVET_FORMATS)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CITEVET_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error; empty uses the config file (env: CITEVET_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CITEVET_LOG_FORMAT", ""),
		"Log format: json, text; empty uses the config file (env: CITEVET_LOG_FORMAT)")

	flag.BoolVar(&cfg.Detect, "detect", false,
		"Detect the best-matching format per batch instead of validating")

	flag.BoolVar(&cfg.DumpMetrics, "metrics", false,
		"Dump Prometheus metrics to stderr after the run")

	flag.IntVar(&cfg.Workers, "workers",
		getEnvInt("CITEVET_WORKERS", 0),
		"Worker pool size, 0 for the default (env: CITEVET_WORKERS)")

	flag.IntVar(&cfg.QueueSize, "queue-size",
		getEnvInt("CITEVET_QUEUE_SIZE", 0),
		"Worker queue capacity, 0 for the default (env: CITEVET_QUEUE_SIZE)")

	flag.DurationVar(&cfg.DrainTimeout, "drain-timeout",
		getEnvDuration("CITEVET_DRAIN_TIMEOUT", 30*time.Second),
		"Time to wait for queued batches on shutdown (env: CITEVET_DRAIN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists when one is named
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	// Validate input file exists unless reading stdin
	if cfg.InputPath != "-" {
		if _, err := os.Stat(cfg.InputPath); err != nil {
			return fmt.Errorf("input file not found: %s", cfg.InputPath)
		}
	}

	// Validate log level when the flag overrides the config
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.LogLevel != "" && !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format when the flag overrides the config
	validFormats := []string{"json", "text"}
	if cfg.LogFormat != "" && !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", cfg.Workers)
	}

	if cfg.QueueSize < 0 {
		return fmt.Errorf("invalid queue size: %d", cfg.QueueSize)
	}

	if cfg.DrainTimeout <= 0 {
		return fmt.Errorf("invalid drain timeout: %s", cfg.DrainTimeout)
	}

	return nil
}

// FormatList splits the formats flag into clean names.
func (c *CLIConfig) FormatList() []string {
	if c.Formats == "" {
		return nil
	}

	var names []string
	for _, name := range strings.Split(c.Formats, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Citation Format Validation

Usage: %s [options]

Input is JSON Lines: each line holds one JSON array of citation strings.

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Validate batches from a file against every enabled format
  %s --input=citations.jsonl

  # Validate against selected formats only
  %s --input=citations.jsonl --formats=apa,mla

  # Detect the best-matching format per batch
  %s --detect --input=citations.jsonl

  # Validate a configuration file and exit
  %s --config=/etc/citevet/config.yaml --validate

  # Dump Prometheus metrics to stderr after the run
  %s --input=citations.jsonl --metrics

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
