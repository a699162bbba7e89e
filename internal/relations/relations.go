// Package relations provides read-only joins across collections. Foreign ids
// are never validated at write time, so every lookup here tolerates dangling
// references and reports absence explicitly.
package relations

import (
	"gcms/pkg/domain"
)

// UnknownOpportunity is the display label for a reference with no match.
const UnknownOpportunity = "Unknown Opportunity"

// FindOpportunity looks up an opportunity by id.
func FindOpportunity(opps []domain.Opportunity, id string) (domain.Opportunity, bool) {
	if id == "" {
		return domain.Opportunity{}, false
	}
	for _, o := range opps {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Opportunity{}, false
}

// OpportunityTitle returns the title of the referenced opportunity.
func OpportunityTitle(opps []domain.Opportunity, id string) (string, bool) {
	o, ok := FindOpportunity(opps, id)
	return o.Title, ok
}

// OpportunityLabel returns the referenced title or UnknownOpportunity.
func OpportunityLabel(opps []domain.Opportunity, id string) string {
	if title, ok := OpportunityTitle(opps, id); ok {
		return title
	}
	return UnknownOpportunity
}

func filter[E any](list []E, keep func(E) bool) []E {
	var out []E
	for _, e := range list {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// DocumentsForOpportunity returns the documents attached to id.
func DocumentsForOpportunity(docs []domain.Document, id string) []domain.Document {
	return filter(docs, func(d domain.Document) bool { return d.OpportunityID == id })
}

// ProposalsForOpportunity returns the proposals linked to id. An empty id
// matches nothing, since an empty opportunityId means unlinked.
func ProposalsForOpportunity(props []domain.Proposal, id string) []domain.Proposal {
	if id == "" {
		return nil
	}
	return filter(props, func(p domain.Proposal) bool { return p.OpportunityID == id })
}

// PricingForOpportunity returns the pricing calculations for id.
func PricingForOpportunity(pcs []domain.PricingCalculation, id string) []domain.PricingCalculation {
	return filter(pcs, func(p domain.PricingCalculation) bool { return p.OpportunityID == id })
}

// SubcontractorsForOpportunity returns the vendors teamed on id.
func SubcontractorsForOpportunity(subs []domain.Subcontractor, id string) []domain.Subcontractor {
	return filter(subs, func(s domain.Subcontractor) bool {
		return s.OpportunityID != nil && *s.OpportunityID == id
	})
}

// MilestonesForOpportunity returns the milestones for id.
func MilestonesForOpportunity(ms []domain.Milestone, id string) []domain.Milestone {
	return filter(ms, func(m domain.Milestone) bool { return m.OpportunityID == id })
}

// Sources bundles the collections an integrity pass reads.
type Sources struct {
	Opportunities  []domain.Opportunity
	Documents      []domain.Document
	Proposals      []domain.Proposal
	Pricing        []domain.PricingCalculation
	Subcontractors []domain.Subcontractor
	Milestones     []domain.Milestone
}

// DanglingReference is a foreign opportunity id with no matching record.
type DanglingReference struct {
	Entity        domain.EntityType `json:"entity"`
	ID            string            `json:"id"`
	OpportunityID string            `json:"opportunityId"`
}

// CheckIntegrity lists every reference to an opportunity that does not
// exist. It reads only; nothing is repaired or cascaded. Unlinked records
// (empty or absent opportunity id) are not reported.
func CheckIntegrity(src Sources) []DanglingReference {
	known := make(map[string]struct{}, len(src.Opportunities))
	for _, o := range src.Opportunities {
		known[o.ID] = struct{}{}
	}
	var out []DanglingReference
	check := func(kind domain.EntityType, id, ref string) {
		if ref == "" {
			return
		}
		if _, ok := known[ref]; !ok {
			out = append(out, DanglingReference{Entity: kind, ID: id, OpportunityID: ref})
		}
	}
	for _, d := range src.Documents {
		check(domain.EntityDocument, d.ID, d.OpportunityID)
	}
	for _, p := range src.Proposals {
		check(domain.EntityProposal, p.ID, p.OpportunityID)
	}
	for _, p := range src.Pricing {
		check(domain.EntityPricing, p.ID, p.OpportunityID)
	}
	for _, s := range src.Subcontractors {
		if s.OpportunityID != nil {
			check(domain.EntitySubcontractor, s.ID, *s.OpportunityID)
		}
	}
	for _, m := range src.Milestones {
		check(domain.EntityMilestone, m.ID, m.OpportunityID)
	}
	return out
}
