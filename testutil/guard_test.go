package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred Forbidden
		in   string
		want bool
	}{
		{Internal, "gcms/internal/store", true},
		{Internal, "gcms/pkg/domain", false},
		{Internal, "internal", false},
		{Backends, "gcms/internal/infra/persistence/sqlite", true},
		{Backends, "gcms/internal/blob/core", true},
		{Backends, "gcms/internal/blob", false},
		{Backends, "gcms/internal/infrastructure", false},
		{Under("a/b"), "a/b", true},
		{Under("a/b"), "a/bc", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Errorf("predicate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\tx \"gcms/internal/infra/blob/fs\"\n)\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"gcms/internal/infra/persistence/sqlite\"\n")
	writeFile(t, dir, "notes.txt", "import \"gcms/internal/infra\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"gcms/internal/infra/x\"\n")

	viols, err := directImports(dir, Backends)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "gcms/internal/infra/blob/fs (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var r recorder
	report(&r, "forbidden direct imports", "backends", viols)
	if !strings.Contains(r.msg, "a.go") || !strings.Contains(r.msg, "backends") {
		t.Fatalf("unexpected report %q", r.msg)
	}
	AssertDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestTransitiveImports(t *testing.T) {
	orig := listDeps
	t.Cleanup(func() { listDeps = orig })
	listDeps = func(string) ([]byte, error) {
		return []byte("fmt\ngcms/pkg/domain\n\n"), nil
	}
	AssertTransitiveImports(t, "./...", Internal, "domain stays leaf")
}
