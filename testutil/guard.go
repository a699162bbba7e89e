// Package testutil holds helpers for package boundary tests: which layers may
// import which.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Forbidden reports whether an import path crosses a boundary.
type Forbidden func(importPath string) bool

// Under matches prefix and every package below it.
func Under(prefix string) Forbidden {
	return func(p string) bool { return p == prefix || strings.HasPrefix(p, prefix+"/") }
}

// AnyOf matches when any of preds matches.
func AnyOf(preds ...Forbidden) Forbidden {
	return func(p string) bool {
		for _, pred := range preds {
			if pred(p) {
				return true
			}
		}
		return false
	}
}

// Internal matches any path with an internal/ segment.
func Internal(p string) bool { return strings.Contains(p, "/internal/") }

// Backends matches the concrete persistence and blob implementations. Code
// outside the factories reaches them through domain.Backend and blob.Store.
var Backends = AnyOf(Under("gcms/internal/infra"), Under("gcms/internal/blob/core"))

// AssertDirectImports fails t when a non-test file directly in dir imports a
// forbidden path. Subdirectories are not scanned and build tags are ignored.
func AssertDirectImports(t testing.TB, dir string, forbidden Forbidden, reason string) {
	t.Helper()
	viols, err := directImports(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	report(t, "forbidden direct imports", reason, viols)
}

// AssertTransitiveImports fails t when any package in `go list -deps pattern`
// is forbidden.
func AssertTransitiveImports(t testing.TB, pattern string, forbidden Forbidden, reason string) {
	t.Helper()
	out, err := listDeps(pattern)
	if err != nil {
		t.Fatalf("go list -deps %s: %v\n%s", pattern, err, out)
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	report(t, "forbidden transitive dependencies", reason, viols)
}

var listDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func directImports(dir string, forbidden Forbidden) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			if p := strings.Trim(imp.Path.Value, `"`); forbidden(p) {
				viols = append(viols, fmt.Sprintf("%s (in %s)", p, name))
			}
		}
	}
	return viols, nil
}

type fataler interface {
	Fatalf(format string, args ...any)
}

func report(t fataler, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
