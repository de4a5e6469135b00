package strategy

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/citevet/citevet/errors"
)

func TestValidateFormatName(t *testing.T) {
	valid := []string{
		"apa",
		"mla",
		"chicago_17",
		"ieee2006",
		"a",
		"Harvard",
		strings.Repeat("a", 64),
	}
	for _, name := range valid {
		if err := ValidateFormatName(name); err != nil {
			t.Errorf("ValidateFormatName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"_hidden",
		"__proto__",
		"9apa",
		"apa-style",
		"apa style",
		"apa.style",
		"apa/style",
		"ápa",
		strings.Repeat("a", 65),
	}
	for _, name := range invalid {
		err := ValidateFormatName(name)
		if err == nil {
			t.Errorf("ValidateFormatName(%q) = nil, want error", name)
			continue
		}
		if !stderrors.Is(err, errors.ErrInvalidName) {
			t.Errorf("ValidateFormatName(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestOriginPackage(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"main.newAPA", "main"},
		{"main.glob..func1", "main"},
		{"os/exec.Command", "os/exec"},
		{"github.com/citevet/citevet/strategy.TestRegister.func1", "github.com/citevet/citevet/strategy"},
		{"github.com/citevet/citevet/testutil.(*StubStrategy).Registration.func1", "github.com/citevet/citevet/testutil"},
		{"command-line-arguments.makeStrategy", "command-line-arguments"},
		{"nodots", "nodots"},
	}
	for _, tt := range tests {
		if got := originPackage(tt.symbol); got != tt.want {
			t.Errorf("originPackage(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestOriginDenied(t *testing.T) {
	denied := []string{
		"os",
		"os/exec",
		"syscall",
		"net",
		"net/http",
		"net/rpc",
		"encoding/gob",
		"plugin",
		"unsafe",
		"reflect",
		"github.com/evil/net",
		"example.com/tools/gob",
		"os.path",
	}
	for _, path := range denied {
		if !originDenied(path) {
			t.Errorf("originDenied(%q) = false, want true", path)
		}
	}

	allowed := []string{
		"main",
		"crypto/sha256",
		"github.com/citevet/citevet/strategy",
		"github.com/partner/network", // "network" is not "net"
		"example.com/gobbler",
	}
	for _, path := range allowed {
		if originDenied(path) {
			t.Errorf("originDenied(%q) = true, want false", path)
		}
	}
}

func TestOriginTrusted(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		prefixes []string
		want     bool
	}{
		{"module package", "github.com/citevet/citevet/strategy", nil, true},
		{"module root", "github.com/citevet/citevet", nil, true},
		{"main package", "main", nil, true},
		{"loose test files", "command-line-arguments", nil, true},
		{"module prefix boundary", "github.com/citevet/citevetx", nil, false},
		{"main prefix boundary", "mainline", nil, false},
		{"unknown third party", "github.com/stranger/citations", nil, false},
		{"unresolvable", "", nil, false},
		{"denied inside module", "github.com/citevet/citevet/net", nil, false},
		{"extra prefix match", "github.com/partner/citations", []string{"github.com/partner"}, true},
		{"extra prefix boundary", "github.com/partnerships/x", []string{"github.com/partner"}, false},
		{"extra prefix never overrides deny", "github.com/partner/net", []string{"github.com/partner"}, false},
		{"empty extra prefix ignored", "github.com/stranger/pkg", []string{""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := originTrusted(tt.path, tt.prefixes); got != tt.want {
				t.Errorf("originTrusted(%q, %v) = %v, want %v", tt.path, tt.prefixes, got, tt.want)
			}
		})
	}
}

func TestFactoryOrigin(t *testing.T) {
	factory := Factory(func() (FormatStrategy, error) { return nil, nil })

	origin := factoryOrigin(factory)
	if !strings.HasPrefix(origin, modulePath) {
		t.Errorf("factoryOrigin resolved %q, want a %q prefix", origin, modulePath)
	}

	if got := factoryOrigin(nil); got != "" {
		t.Errorf("factoryOrigin(nil) = %q, want empty", got)
	}
}

func TestSameFactory(t *testing.T) {
	a := Factory(func() (FormatStrategy, error) { return nil, nil })
	b := Factory(func() (FormatStrategy, error) { return nil, nil })

	if !sameFactory(a, a) {
		t.Error("sameFactory(a, a) = false, want true")
	}
	if sameFactory(a, b) {
		t.Error("sameFactory(a, b) = true, want false for distinct literals")
	}
	if sameFactory(a, nil) {
		t.Error("sameFactory(a, nil) = true, want false")
	}
	if !sameFactory(nil, nil) {
		t.Error("sameFactory(nil, nil) = false, want true")
	}
}
