package strategy

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/citevet/citevet/errors"
)

// modulePath is this toolkit's import path prefix; factories declared under
// it are always trusted.
const modulePath = "github.com/citevet/citevet"

// maxFormatNameLength caps registered format names.
const maxFormatNameLength = 64

// deniedOriginComponents lists package path components that disqualify a
// factory's declaring package. A factory declared in any package whose path
// matches one of these exactly, or contains one as a slash- or dot-separated
// component, is rejected regardless of the allow list. The set covers process
// and network control, code loading, and serialization gadget surfaces.
var deniedOriginComponents = map[string]bool{
	"os":      true,
	"exec":    true,
	"syscall": true,
	"net":     true,
	"http":    true,
	"rpc":     true,
	"plugin":  true,
	"unsafe":  true,
	"reflect": true,
	"gob":     true,
}

// defaultTrustedPrefixes are always-accepted origin prefixes: this module,
// programs registering their own strategies from package main, and test
// binaries built from loose files.
var defaultTrustedPrefixes = []string{
	modulePath,
	"main",
	"command-line-arguments",
}

// ValidateFormatName checks that a format name is usable as a registry key:
// ASCII letters, digits, and underscores only, starting with a letter.
func ValidateFormatName(name string) error {
	if name == "" {
		return errors.WrapInvalid(
			errors.ErrInvalidName, "StrategyRegistry", "ValidateFormatName", "empty name")
	}
	if len(name) > maxFormatNameLength {
		return errors.WrapInvalid(
			errors.ErrInvalidName, "StrategyRegistry", "ValidateFormatName", "name too long")
	}
	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if i == 0 {
			if !letter {
				return errors.WrapInvalid(
					errors.ErrInvalidName, "StrategyRegistry", "ValidateFormatName",
					"name must start with a letter")
			}
			continue
		}
		if !letter && !digit && r != '_' {
			return errors.WrapInvalid(
				errors.ErrInvalidName, "StrategyRegistry", "ValidateFormatName",
				"invalid name characters")
		}
	}
	return nil
}

// factoryPointer returns the code pointer identifying a factory function.
// Two closures built from the same function literal share a pointer.
func factoryPointer(factory Factory) uintptr {
	if factory == nil {
		return 0
	}
	return reflect.ValueOf(factory).Pointer()
}

// factoryOrigin resolves the package path that declares a factory function.
// Returns "" when the function cannot be resolved; callers treat that as
// untrusted.
func factoryOrigin(factory Factory) string {
	fn := runtime.FuncForPC(factoryPointer(factory))
	if fn == nil {
		return ""
	}
	return originPackage(fn.Name())
}

// originPackage extracts the package path from a runtime symbol name such as
// "github.com/citevet/citevet/strategy.TestRegister.func1" or "main.newAPA".
func originPackage(symbol string) string {
	slash := strings.LastIndex(symbol, "/")
	dot := strings.Index(symbol[slash+1:], ".")
	if dot < 0 {
		return symbol
	}
	return symbol[:slash+1+dot]
}

// originDenied reports whether a package path matches the deny set, either
// exactly or in any slash- or dot-separated component.
func originDenied(path string) bool {
	if deniedOriginComponents[path] {
		return true
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '.'
	}) {
		if deniedOriginComponents[part] {
			return true
		}
	}
	return false
}

// originTrusted applies the origin policy to a factory's package path:
// deny-set matches lose, then allow-list prefixes win, and anything else is
// rejected. Prefix matches are path-segment aware so "evil.example/mainline"
// does not pass as "main".
func originTrusted(path string, extraPrefixes []string) bool {
	if path == "" {
		return false
	}
	if originDenied(path) {
		return false
	}
	for _, prefix := range defaultTrustedPrefixes {
		if matchesPrefix(path, prefix) {
			return true
		}
	}
	for _, prefix := range extraPrefixes {
		if prefix != "" && matchesPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// matchesPrefix reports whether path equals prefix or sits beneath it as a
// package subtree.
func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
