package blob

import (
	"slices"
	"testing"

	"golang.org/x/tools/go/packages"

	"gcms/testutil"
)

// Attachments and the blob persistence driver must see blob.Store only; the
// concrete stores are reached through this package's factory.
func TestInfraBlobStoresStayBehindFactory(t *testing.T) {
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}, "gcms/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	infra := testutil.Under("gcms/internal/infra/blob")
	allowed := testutil.AnyOf(testutil.Under("gcms/internal/blob"), infra)

	var bad []string
	for _, pkg := range pkgs {
		if allowed(pkg.PkgPath) {
			continue
		}
		for path := range pkg.Imports {
			if infra(path) {
				bad = append(bad, pkg.PkgPath+" -> "+path)
			}
		}
	}
	slices.Sort(bad)
	bad = slices.Compact(bad)
	for _, b := range bad {
		t.Errorf("imports an infra blob store directly: %s", b)
	}
}
