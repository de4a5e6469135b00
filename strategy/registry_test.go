package strategy

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/citevet/citevet/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, config Config) *Registry {
	t.Helper()
	registry, err := New(config, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return registry
}

// fakeStrategy is a minimal in-package FormatStrategy for white-box tests.
type fakeStrategy struct {
	name       string
	valid      bool
	confidence float64
	errs       []string
}

func (f *fakeStrategy) FormatName() string       { return f.name }
func (f *fakeStrategy) FormatVersion() string    { return "1.0.0" }
func (f *fakeStrategy) SupportedTypes() []string { return []string{"article"} }

func (f *fakeStrategy) Validate(_ context.Context, citations []string) (*Result, error) {
	valid := 0
	if f.valid {
		valid = len(citations)
	}
	return &Result{
		FormatName:     f.name,
		IsValid:        f.valid,
		Confidence:     f.confidence,
		Errors:         f.errs,
		TotalCitations: len(citations),
		ValidCitations: valid,
	}, nil
}

func fakeRegistration(name string, priority int, enabled bool) Registration {
	return Registration{
		Descriptor: Descriptor{
			Name:           name,
			Version:        "1.0.0",
			SupportedTypes: []string{"article"},
		},
		Factory:  func() (FormatStrategy, error) { return &fakeStrategy{name: name, valid: true, confidence: 0.9}, nil },
		Priority: priority,
		Enabled:  enabled,
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"negative cache size", Config{CacheSize: -1}},
		{"negative ttl", Config{CacheTTL: -time.Second}},
		{"threshold above one", Config{DetectionThreshold: 1.5}},
		{"negative prefix", Config{DetectionPrefix: -1}},
		{"negative format cap", Config{MaxFormatEntries: -1}},
		{"negative pattern cap", Config{MaxErrorPatterns: -1}},
		{"cleanup factor above one", Config{CleanupFactor: 1.5}},
		{"negative concurrency", Config{MaxConcurrentValidations: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("New() = nil error, want config validation failure")
			}
		})
	}
}

func TestNewRegistration_Defaults(t *testing.T) {
	descriptor := Descriptor{Name: "apa", Version: "7th", SupportedTypes: []string{"article"}}
	registration := NewRegistration(descriptor, func() (FormatStrategy, error) { return nil, nil })

	if registration.Priority != DefaultPriority {
		t.Errorf("Priority = %d, want %d", registration.Priority, DefaultPriority)
	}
	if !registration.Enabled {
		t.Error("Enabled = false, want true")
	}
}

func TestRegister(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	if !registry.Register(fakeRegistration("apa", 80, true)) {
		t.Fatal("Register() = false, want true")
	}

	meta, ok := registry.MetadataFor("apa")
	if !ok {
		t.Fatal("MetadataFor(apa) not found after registration")
	}
	if meta.Priority != 80 {
		t.Errorf("Priority = %d, want 80", meta.Priority)
	}
	if !meta.Enabled {
		t.Error("Enabled = false, want true")
	}
	if meta.RegisteredAt.IsZero() {
		t.Error("RegisteredAt is zero")
	}
	if meta.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0", meta.UsageCount)
	}
	if meta.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want the 0.5 prior", meta.SuccessRate)
	}
	if meta.LastUsed != nil {
		t.Errorf("LastUsed = %v, want nil before first lookup", meta.LastUsed)
	}

	// Registration seeds the format distribution at zero.
	stats := registry.Snapshot()
	if count, ok := stats.FormatDistribution["apa"]; !ok || count != 0 {
		t.Errorf("FormatDistribution[apa] = %d, %v; want 0, true", count, ok)
	}
}

func TestRegister_GateRejections(t *testing.T) {
	okFactory := func() (FormatStrategy, error) { return &fakeStrategy{name: "x"}, nil }
	okDescriptor := func(name string) Descriptor {
		return Descriptor{Name: name, Version: "1.0.0", SupportedTypes: []string{"article"}}
	}

	tests := []struct {
		name         string
		registration Registration
		sentinel     error
	}{
		{
			"nil factory",
			Registration{Descriptor: okDescriptor("apa"), Factory: nil, Priority: 50, Enabled: true},
			errors.ErrNilFactory,
		},
		{
			"empty name",
			Registration{Descriptor: okDescriptor(""), Factory: okFactory, Priority: 50, Enabled: true},
			errors.ErrInvalidName,
		},
		{
			"underscore name",
			Registration{Descriptor: okDescriptor("_apa"), Factory: okFactory, Priority: 50, Enabled: true},
			errors.ErrInvalidName,
		},
		{
			"missing version",
			Registration{
				Descriptor: Descriptor{Name: "apa", SupportedTypes: []string{"article"}},
				Factory:    okFactory, Priority: 50, Enabled: true,
			},
			errors.ErrMissingConfig,
		},
		{
			"no supported types",
			Registration{
				Descriptor: Descriptor{Name: "apa", Version: "1.0.0"},
				Factory:    okFactory, Priority: 50, Enabled: true,
			},
			errors.ErrMissingConfig,
		},
		{
			"priority below range",
			Registration{Descriptor: okDescriptor("apa"), Factory: okFactory, Priority: -1, Enabled: true},
			errors.ErrBadPriority,
		},
		{
			"priority above range",
			Registration{Descriptor: okDescriptor("apa"), Factory: okFactory, Priority: 101, Enabled: true},
			errors.ErrBadPriority,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry(t, DefaultConfig())

			if registry.Register(tt.registration) {
				t.Error("Register() = true, want rejection")
			}
			err := registry.RegisterWithReason(tt.registration)
			if err == nil {
				t.Fatal("RegisterWithReason() = nil, want error")
			}
			if !stderrors.Is(err, tt.sentinel) {
				t.Errorf("RegisterWithReason() error = %v, want %v in chain", err, tt.sentinel)
			}
			if !errors.IsInvalid(err) {
				t.Errorf("RegisterWithReason() error class = %v, want invalid", errors.Classify(err))
			}
			if _, ok := registry.MetadataFor(tt.registration.Descriptor.Name); ok {
				t.Error("rejected strategy is present in the registry")
			}
		})
	}
}

func TestRegister_UntrustedOrigin(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.origin = func(Factory) string { return "os.path" }

	registration := fakeRegistration("apa", 50, true)
	if registry.Register(registration) {
		t.Error("Register() = true for a factory declared in os.path, want rejection")
	}
	err := registry.RegisterWithReason(registration)
	if !stderrors.Is(err, errors.ErrUntrustedOrigin) {
		t.Errorf("RegisterWithReason() error = %v, want ErrUntrustedOrigin", err)
	}
	if _, ok := registry.MetadataFor("apa"); ok {
		t.Error("untrusted strategy is present in the registry")
	}
}

func TestRegister_TrustedPrefixAllows(t *testing.T) {
	config := DefaultConfig()
	config.TrustedPrefixes = []string{"github.com/partner"}
	registry := newTestRegistry(t, config)
	registry.origin = func(Factory) string { return "github.com/partner/citations" }

	if !registry.Register(fakeRegistration("apa", 50, true)) {
		t.Error("Register() = false for a configured trusted prefix, want success")
	}
}

func TestRegister_DefaultOriginAcceptsTestFactories(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	// Factories declared in this module resolve under the module path and
	// pass the gate without extra configuration.
	if !registry.Register(fakeRegistration("apa", 50, true)) {
		t.Error("Register() = false for an in-module factory, want success")
	}
}

func TestRegister_CaseInsensitiveNames(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	if !registry.Register(fakeRegistration("APA", 50, true)) {
		t.Fatal("Register(APA) = false, want true")
	}
	if _, ok := registry.MetadataFor("apa"); !ok {
		t.Error("MetadataFor(apa) not found; names should be case-insensitive")
	}
	if _, err := registry.Get(context.Background(), "ApA"); err != nil {
		t.Errorf("Get(ApA) error = %v, want mixed-case lookup to succeed", err)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	registration := fakeRegistration("apa", 50, true)
	if !registry.Register(registration) {
		t.Fatal("first Register() = false, want true")
	}
	if _, err := registry.Get(context.Background(), "apa"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// Same factory, new settings: refresh in place.
	registration.Priority = 90
	registration.Enabled = false
	if !registry.Register(registration) {
		t.Fatal("re-Register() = false, want idempotent success")
	}

	if got := len(registry.Formats(true)); got != 1 {
		t.Errorf("Formats(true) length = %d, want 1 after re-registration", got)
	}
	meta, _ := registry.MetadataFor("apa")
	if meta.Priority != 90 {
		t.Errorf("Priority = %d, want refreshed to 90", meta.Priority)
	}
	if meta.Enabled {
		t.Error("Enabled = true, want refreshed to false")
	}
	if meta.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1 preserved across re-registration", meta.UsageCount)
	}
}

func TestRegister_DuplicateFactoryRejected(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	if !registry.Register(fakeRegistration("apa", 50, true)) {
		t.Fatal("Register() = false, want true")
	}

	// Different factory under the same name.
	conflicting := fakeRegistration("apa", 90, true)
	if registry.Register(conflicting) {
		t.Error("Register() = true for a conflicting factory, want rejection")
	}
	err := registry.RegisterWithReason(conflicting)
	if !stderrors.Is(err, errors.ErrDuplicateStrategy) {
		t.Errorf("RegisterWithReason() error = %v, want ErrDuplicateStrategy", err)
	}

	meta, _ := registry.MetadataFor("apa")
	if meta.Priority != 50 {
		t.Errorf("Priority = %d, want original 50 untouched", meta.Priority)
	}
}

func TestGet(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, true))

	first, err := registry.Get(context.Background(), "apa")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := registry.Get(context.Background(), "apa")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first == second {
		t.Error("Get() returned the same instance twice, want a fresh instance per call")
	}

	meta, _ := registry.MetadataFor("apa")
	if meta.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", meta.UsageCount)
	}
	if meta.LastUsed == nil {
		t.Error("LastUsed = nil, want set after lookup")
	}
}

func TestGet_NotFound(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	_, err := registry.Get(context.Background(), "apa")
	if !stderrors.Is(err, errors.ErrStrategyNotFound) {
		t.Errorf("Get() error = %v, want ErrStrategyNotFound", err)
	}
}

func TestGet_Disabled(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, false))

	_, err := registry.Get(context.Background(), "apa")
	if !stderrors.Is(err, errors.ErrStrategyDisabled) {
		t.Errorf("Get() error = %v, want ErrStrategyDisabled", err)
	}
}

func TestGet_FactoryFailure(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())

	broken := fmt.Errorf("missing style tables")
	registration := Registration{
		Descriptor: Descriptor{Name: "apa", Version: "1.0.0", SupportedTypes: []string{"article"}},
		Factory:    func() (FormatStrategy, error) { return nil, broken },
		Priority:   50,
		Enabled:    true,
	}
	if !registry.Register(registration) {
		t.Fatal("Register() = false; construction is not vetted at registration")
	}

	_, err := registry.Get(context.Background(), "apa")
	if !stderrors.Is(err, errors.ErrStrategyConstruct) {
		t.Errorf("Get() error = %v, want ErrStrategyConstruct", err)
	}
	if !stderrors.Is(err, broken) {
		t.Errorf("Get() error = %v, want the factory's error in the chain", err)
	}

	// The lookup itself succeeded, so usage still counts.
	meta, _ := registry.MetadataFor("apa")
	if meta.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", meta.UsageCount)
	}
}

func TestGet_NilInstance(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registration := Registration{
		Descriptor: Descriptor{Name: "apa", Version: "1.0.0", SupportedTypes: []string{"article"}},
		Factory:    func() (FormatStrategy, error) { return nil, nil },
		Priority:   50,
		Enabled:    true,
	}
	registry.Register(registration)

	_, err := registry.Get(context.Background(), "apa")
	if !stderrors.Is(err, errors.ErrStrategyConstruct) {
		t.Errorf("Get() error = %v, want ErrStrategyConstruct for a nil instance", err)
	}
}

func TestGet_CancelledContext(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := registry.Get(ctx, "apa"); err == nil {
		t.Error("Get() = nil error with a cancelled context, want error")
	}
}

func TestEnableDisable(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, true))

	if !registry.Disable("apa") {
		t.Fatal("Disable() = false, want true")
	}
	if _, err := registry.Get(context.Background(), "apa"); !stderrors.Is(err, errors.ErrStrategyDisabled) {
		t.Errorf("Get() after Disable error = %v, want ErrStrategyDisabled", err)
	}

	if !registry.Enable("apa") {
		t.Fatal("Enable() = false, want true")
	}
	if _, err := registry.Get(context.Background(), "apa"); err != nil {
		t.Errorf("Get() after Enable error = %v, want nil", err)
	}

	if registry.Enable("missing") {
		t.Error("Enable(missing) = true, want false")
	}
	if registry.Disable("missing") {
		t.Error("Disable(missing) = true, want false")
	}
}

func TestUnregister(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, true))

	// Drive one validation so the distribution carries a nonzero count.
	registry.ValidateAll(context.Background(), []string{"Doe, J. (2021)."}, "apa")

	if !registry.Unregister("apa") {
		t.Fatal("Unregister() = false, want true")
	}
	if registry.Unregister("apa") {
		t.Error("second Unregister() = true, want false")
	}
	if _, ok := registry.MetadataFor("apa"); ok {
		t.Error("MetadataFor found an unregistered strategy")
	}
	if _, ok := registry.Snapshot().FormatDistribution["apa"]; ok {
		t.Error("format distribution entry survived unregistration")
	}
	if got := len(registry.Formats(true)); got != 0 {
		t.Errorf("Formats(true) length = %d, want 0", got)
	}
}

func TestFormats(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("mla", 75, true))
	registry.Register(fakeRegistration("apa", 80, true))
	registry.Register(fakeRegistration("chicago", 75, false))

	enabled := registry.Formats(false)
	if len(enabled) != 2 {
		t.Fatalf("Formats(false) length = %d, want 2", len(enabled))
	}
	if enabled[0].Name != "apa" || enabled[1].Name != "mla" {
		t.Errorf("Formats(false) order = [%s %s], want [apa mla]", enabled[0].Name, enabled[1].Name)
	}

	all := registry.Formats(true)
	if len(all) != 3 {
		t.Fatalf("Formats(true) length = %d, want 3", len(all))
	}
	// Priority descending, names break the 75 tie.
	want := []string{"apa", "chicago", "mla"}
	for i, info := range all {
		if info.Name != want[i] {
			t.Errorf("Formats(true)[%d] = %s, want %s", i, info.Name, want[i])
		}
	}
}

func TestMetadataFor_CopySemantics(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 50, true))
	registry.Get(context.Background(), "apa")

	meta, _ := registry.MetadataFor("apa")
	meta.Descriptor.SupportedTypes[0] = "mutated"
	*meta.LastUsed = time.Time{}

	fresh, _ := registry.MetadataFor("apa")
	if fresh.Descriptor.SupportedTypes[0] == "mutated" {
		t.Error("mutating a returned Metadata changed registry state")
	}
	if fresh.LastUsed == nil || fresh.LastUsed.IsZero() {
		t.Error("mutating a returned LastUsed changed registry state")
	}
}

func TestDetectFormat_StaleEntryEvicted(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("apa", 80, true))

	citations := []string{"Doe, J. (2021). A paper. Journal, 1(1), 1-10."}
	key := registry.detectionKey(citations)

	// Inject a cached detection pointing at a format that no longer exists.
	registry.mu.Lock()
	registry.detection.Set(key, "ghost")
	registry.mu.Unlock()

	name, ok := registry.DetectFormat(context.Background(), citations)
	if !ok || name != "apa" {
		t.Errorf("DetectFormat() = (%q, %v), want fresh detection (apa, true)", name, ok)
	}

	registry.mu.Lock()
	cached, present := registry.detection.Get(key)
	registry.mu.Unlock()
	if !present || cached != "apa" {
		t.Errorf("cache entry = (%q, %v), want stale entry replaced by (apa, true)", cached, present)
	}
}

func TestConcurrentOperations(t *testing.T) {
	registry := newTestRegistry(t, DefaultConfig())
	registry.Register(fakeRegistration("stable", 50, true))

	const (
		churners   = 4
		validators = 4
		iterations = 25
	)
	citations := []string{"Doe, J. (2021). A paper. Journal, 1(1), 1-10."}

	var wg sync.WaitGroup
	for c := range churners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("churn%d", c)
			for range iterations {
				registry.Register(fakeRegistration(name, 50, true))
				registry.Unregister(name)
			}
		}()
	}
	for range validators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				results := registry.ValidateAll(context.Background(), citations, "stable")
				if len(results) != 1 {
					t.Errorf("ValidateAll() produced %d results, want 1", len(results))
				}
			}
		}()
	}
	wg.Wait()

	stats := registry.Snapshot()
	wantTotal := uint64(validators * iterations)
	if stats.Total != wantTotal {
		t.Errorf("Total = %d, want %d", stats.Total, wantTotal)
	}
	if stats.Successful+stats.Failed != stats.Total {
		t.Errorf("Successful+Failed = %d, want Total %d", stats.Successful+stats.Failed, stats.Total)
	}

	meta, ok := registry.MetadataFor("stable")
	if !ok {
		t.Fatal("stable strategy lost during churn")
	}
	if meta.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0 after all-valid runs", meta.SuccessRate)
	}
	if got := len(registry.Formats(true)); got != 1 {
		t.Errorf("Formats(true) length = %d, want 1 after churn completes", got)
	}
}
