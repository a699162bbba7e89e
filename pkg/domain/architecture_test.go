package domain_test

import (
	"testing"

	"gcms/testutil"
)

// The domain package is the leaf every store and backend builds on.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertDirectImports(t, ".", testutil.Internal, "domain must not depend on internal packages")
	testutil.AssertTransitiveImports(t, ".", testutil.Under("gcms/internal"), "domain must not depend on internal packages")
}
