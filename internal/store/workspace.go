package store

import (
	"context"

	"gcms/internal/templates"
	"gcms/pkg/domain"
)

// WorkspaceStore is the core domain store: proposals, templates, pricing
// calculations, milestones and subcontractors under one durable record.
type WorkspaceStore struct {
	*binding

	Proposals      *Collection[domain.Proposal]
	Templates      *Collection[domain.Template]
	Pricing        *Collection[domain.PricingCalculation]
	Milestones     *Collection[domain.Milestone]
	Subcontractors *Collection[domain.Subcontractor]
}

// OpenWorkspace loads the workspace store from backend.
func OpenWorkspace(ctx context.Context, backend domain.Backend, opts ...Option) (*WorkspaceStore, error) {
	b := newBinding(WorkspaceKey, workspaceChain, backend, buildOptions(opts))
	s := &WorkspaceStore{
		binding:        b,
		Proposals:      newCollection(b, proposalSchema),
		Templates:      newCollection(b, templateSchema(templates.Defaults)),
		Pricing:        newCollection(b, pricingSchema),
		Milestones:     newCollection(b, milestoneSchema),
		Subcontractors: newCollection(b, subcontractorSchema),
	}
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ResetTemplates replaces the template collection with the shipped seed set.
// User-created templates are discarded.
func (s *WorkspaceStore) ResetTemplates(ctx context.Context) error {
	return s.Templates.replace(ctx, templates.Defaults(), "reset")
}
