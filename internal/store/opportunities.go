package store

import (
	"context"

	"gcms/internal/templates"
	"gcms/pkg/domain"
)

// OpportunityStore holds the opportunity collection.
type OpportunityStore struct {
	*binding
	Opportunities *Collection[domain.Opportunity]
}

// OpenOpportunities loads the opportunity store from backend.
func OpenOpportunities(ctx context.Context, backend domain.Backend, opts ...Option) (*OpportunityStore, error) {
	b := newBinding(OpportunitiesKey, opportunitiesChain, backend, buildOptions(opts))
	s := &OpportunityStore{binding: b, Opportunities: newCollection(b, opportunitySchema)}
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ClearOpportunities removes every opportunity. Records in other stores that
// reference them are left alone.
func (s *OpportunityStore) ClearOpportunities(ctx context.Context) error {
	return s.Opportunities.Clear(ctx)
}

// DocumentStore holds documents attached to opportunities.
type DocumentStore struct {
	*binding
	Documents *Collection[domain.Document]
}

// OpenDocuments loads the document store from backend.
func OpenDocuments(ctx context.Context, backend domain.Backend, opts ...Option) (*DocumentStore, error) {
	b := newBinding(DocumentsKey, documentsChain, backend, buildOptions(opts))
	s := &DocumentStore{binding: b, Documents: newCollection(b, documentSchema)}
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DocumentsByOpportunity returns the documents whose opportunityId is id, in
// insertion order. The result is never nil.
func (s *DocumentStore) DocumentsByOpportunity(id string) []domain.Document {
	out := []domain.Document{}
	for _, d := range s.Documents.List() {
		if d.OpportunityID == id {
			out = append(out, d)
		}
	}
	return out
}

// TemplateStore is the standalone template library.
type TemplateStore struct {
	*binding
	Templates *Collection[domain.Template]
}

// OpenTemplates loads the template library from backend.
func OpenTemplates(ctx context.Context, backend domain.Backend, opts ...Option) (*TemplateStore, error) {
	b := newBinding(TemplatesKey, templatesChain, backend, buildOptions(opts))
	s := &TemplateStore{binding: b, Templates: newCollection(b, templateSchema(templates.Defaults))}
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ResetToDefaults replaces the library with the shipped seed set.
func (s *TemplateStore) ResetToDefaults(ctx context.Context) error {
	return s.Templates.replace(ctx, templates.Defaults(), "reset")
}

// ByCategory filters the library by category.
func (s *TemplateStore) ByCategory(category domain.TemplateCategory) []domain.Template {
	return templates.ByCategory(s.Templates.List(), category)
}

// ByTags returns the library templates carrying at least one of tags.
func (s *TemplateStore) ByTags(tags []string) []domain.Template {
	return templates.ByTags(s.Templates.List(), tags)
}
