package templates

import (
	"strings"
	"testing"

	"gcms/pkg/domain"
)

func TestDefaultsShape(t *testing.T) {
	list := Defaults()
	if len(list) != 8 {
		t.Fatalf("expected 8 seed templates, got %d", len(list))
	}
	seen := map[string]bool{}
	for _, tpl := range list {
		if seen[tpl.ID] {
			t.Fatalf("duplicate seed id %s", tpl.ID)
		}
		seen[tpl.ID] = true
		if !tpl.Category.Valid() {
			t.Fatalf("seed %s has invalid category %q", tpl.ID, tpl.Category)
		}
		if !strings.HasPrefix(tpl.Content, "# ") {
			t.Fatalf("seed %s content should be a markdown document", tpl.ID)
		}
		if len(tpl.Tags) == 0 {
			t.Fatalf("seed %s has no tags", tpl.ID)
		}
	}
}

func TestDefaultsReturnsCopies(t *testing.T) {
	a := Defaults()
	a[0].Name = "changed"
	a[0].Tags[0] = "changed"
	b := Defaults()
	if b[0].Name == "changed" || b[0].Tags[0] == "changed" {
		t.Fatalf("Defaults leaked shared state")
	}
}

func TestCatalogueLookups(t *testing.T) {
	list := Defaults()
	if got := ByCategory(list, domain.CategoryPricing); len(got) != 2 || got[0].ID != "price-1" || got[1].ID != "price-2" {
		t.Fatalf("unexpected pricing templates %+v", got)
	}
	got := ByTags(list, []string{"matrix"})
	if len(got) != 2 || got[0].ID != "pp-2" || got[1].ID != "tech-2" {
		t.Fatalf("unexpected tag matches %+v", got)
	}
	if got := ByTags(list, nil); len(got) != 0 {
		t.Fatalf("expected no matches for empty tag list")
	}
}
