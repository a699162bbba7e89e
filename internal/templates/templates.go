// Package templates holds the shipped seed set of reusable proposal templates
// and catalogue lookups over any template slice.
package templates

import (
	"embed"
	"fmt"

	"gcms/pkg/domain"
)

//go:embed seed/*.md
var seedFS embed.FS

type seed struct {
	id       string
	name     string
	category domain.TemplateCategory
	tags     []string
}

var seeds = []seed{
	{id: "pp-1", name: "Standard Past Performance", category: domain.CategoryPastPerformance, tags: []string{"federal", "past performance", "reference"}},
	{id: "pp-2", name: "Detailed Performance Matrix", category: domain.CategoryPastPerformance, tags: []string{"matrix", "evaluation", "ratings"}},
	{id: "tech-1", name: "Technical Approach Overview", category: domain.CategoryTechnical, tags: []string{"technical", "methodology", "implementation"}},
	{id: "tech-2", name: "Technical Compliance Matrix", category: domain.CategoryTechnical, tags: []string{"compliance", "matrix", "requirements"}},
	{id: "price-1", name: "Detailed Price Breakdown", category: domain.CategoryPricing, tags: []string{"pricing", "cost", "breakdown"}},
	{id: "price-2", name: "Price Narrative", category: domain.CategoryPricing, tags: []string{"narrative", "justification", "methodology"}},
	{id: "quote-1", name: "Standard Quote Request", category: domain.CategoryQuoteRequest, tags: []string{"rfq", "quote", "procurement"}},
	{id: "quote-2", name: "Technical Quote Request", category: domain.CategoryQuoteRequest, tags: []string{"technical", "requirements", "specifications"}},
}

var defaults = mustLoad()

func mustLoad() []domain.Template {
	out := make([]domain.Template, 0, len(seeds))
	for _, s := range seeds {
		body, err := seedFS.ReadFile("seed/" + s.id + ".md")
		if err != nil {
			panic(fmt.Errorf("templates: read seed %s: %w", s.id, err))
		}
		out = append(out, domain.Template{
			ID:       s.id,
			Name:     s.name,
			Category: s.category,
			Content:  string(body),
			Tags:     s.tags,
		})
	}
	return out
}

// Defaults returns a fresh copy of the shipped seed set in catalogue order.
func Defaults() []domain.Template {
	out := make([]domain.Template, len(defaults))
	for i, t := range defaults {
		t.Tags = append([]string(nil), t.Tags...)
		out[i] = t
	}
	return out
}

// ByCategory filters list to one category, preserving order.
func ByCategory(list []domain.Template, category domain.TemplateCategory) []domain.Template {
	var out []domain.Template
	for _, t := range list {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// ByTags returns the templates carrying at least one of tags.
func ByTags(list []domain.Template, tags []string) []domain.Template {
	want := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		want[tag] = struct{}{}
	}
	var out []domain.Template
	for _, t := range list {
		for _, tag := range t.Tags {
			if _, ok := want[tag]; ok {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
