package store

import (
	"slices"

	"gcms/internal/pricing"
	"gcms/pkg/domain"
)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// orEmpty keeps persisted arrays as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func cloneOpportunity(o domain.Opportunity) domain.Opportunity { return o }

func cloneDocument(d domain.Document) domain.Document {
	d.Description = clonePtr(d.Description)
	d.Size = clonePtr(d.Size)
	return d
}

func cloneProposal(p domain.Proposal) domain.Proposal {
	p.Content = clonePtr(p.Content)
	return p
}

func cloneTemplate(t domain.Template) domain.Template {
	t.Tags = slices.Clone(t.Tags)
	return t
}

func clonePricing(p domain.PricingCalculation) domain.PricingCalculation {
	p.LaborRates = slices.Clone(p.LaborRates)
	p.Materials = slices.Clone(p.Materials)
	return p
}

func cloneSubcontractor(s domain.Subcontractor) domain.Subcontractor {
	s.Specialties = slices.Clone(s.Specialties)
	s.PastPerformance = slices.Clone(s.PastPerformance)
	s.Quotes = slices.Clone(s.Quotes)
	s.Notes = clonePtr(s.Notes)
	s.OpportunityID = clonePtr(s.OpportunityID)
	return s
}

func cloneMilestone(m domain.Milestone) domain.Milestone {
	m.AssignedTo = clonePtr(m.AssignedTo)
	return m
}

func cloneSession(s domain.Session) domain.Session {
	s.User = clonePtr(s.User)
	s.Token = clonePtr(s.Token)
	return s
}

func prepareTemplate(t domain.Template) domain.Template {
	t.Tags = orEmpty(t.Tags)
	return t
}

// preparePricing enforces the derived total on every write and load.
func preparePricing(p domain.PricingCalculation) domain.PricingCalculation {
	p.LaborRates = orEmpty(p.LaborRates)
	p.Materials = orEmpty(p.Materials)
	return pricing.Apply(p)
}

func prepareSubcontractor(s domain.Subcontractor) domain.Subcontractor {
	s.Specialties = orEmpty(s.Specialties)
	s.PastPerformance = orEmpty(s.PastPerformance)
	return s
}

var (
	opportunitySchema = schema[domain.Opportunity]{
		name:   "opportunities",
		clone:  cloneOpportunity,
		withID: func(o domain.Opportunity, id string) domain.Opportunity { o.ID = id; return o },
	}
	documentSchema = schema[domain.Document]{
		name:   "documents",
		clone:  cloneDocument,
		withID: func(d domain.Document, id string) domain.Document { d.ID = id; return d },
	}
	proposalSchema = schema[domain.Proposal]{
		name:   "proposals",
		clone:  cloneProposal,
		withID: func(p domain.Proposal, id string) domain.Proposal { p.ID = id; return p },
	}
	pricingSchema = schema[domain.PricingCalculation]{
		name:    "pricingCalculations",
		clone:   clonePricing,
		withID:  func(p domain.PricingCalculation, id string) domain.PricingCalculation { p.ID = id; return p },
		prepare: preparePricing,
		stale:   pricing.Drift,
	}
	subcontractorSchema = schema[domain.Subcontractor]{
		name:    "subcontractors",
		clone:   cloneSubcontractor,
		withID:  func(s domain.Subcontractor, id string) domain.Subcontractor { s.ID = id; return s },
		prepare: prepareSubcontractor,
	}
	milestoneSchema = schema[domain.Milestone]{
		name:   "milestones",
		clone:  cloneMilestone,
		withID: func(m domain.Milestone, id string) domain.Milestone { m.ID = id; return m },
	}
)

func templateSchema(defaults func() []domain.Template) schema[domain.Template] {
	return schema[domain.Template]{
		name:     "templates",
		clone:    cloneTemplate,
		withID:   func(t domain.Template, id string) domain.Template { t.ID = id; return t },
		prepare:  prepareTemplate,
		defaults: defaults,
	}
}
