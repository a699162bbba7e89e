package httpapi

import (
	"math"

	"gcms/internal/pricing"
	"gcms/pkg/domain"
)

func checkRating(v float64) error {
	if v < 0 || v > 5 {
		return invalid("rating %v outside 0..5", v)
	}
	return nil
}

func checkProgress(v int) error {
	if v < 0 || v > 100 {
		return invalid("progress %d outside 0..100", v)
	}
	return nil
}

func checkOpportunity(o domain.Opportunity) error {
	if !o.Status.Valid() {
		return invalid("unknown opportunity status %q", o.Status)
	}
	return nil
}

func checkOpportunityPatch(p domain.OpportunityPatch) error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown opportunity status %q", *p.Status)
	}
	return nil
}

func checkDocument(d domain.Document) error {
	if !d.Type.Valid() {
		return invalid("unknown document type %q", d.Type)
	}
	return nil
}

func checkDocumentPatch(p domain.DocumentPatch) error {
	if p.Type != nil && !p.Type.Valid() {
		return invalid("unknown document type %q", *p.Type)
	}
	return nil
}

func checkProposal(p domain.Proposal) error {
	if !p.Status.Valid() {
		return invalid("unknown proposal status %q", p.Status)
	}
	return checkProgress(p.Progress)
}

func checkProposalPatch(p domain.ProposalPatch) error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown proposal status %q", *p.Status)
	}
	if p.Progress != nil {
		return checkProgress(*p.Progress)
	}
	return nil
}

func checkTemplate(t domain.Template) error {
	if !t.Category.Valid() {
		return invalid("unknown template category %q", t.Category)
	}
	return nil
}

func checkTemplatePatch(p domain.TemplatePatch) error {
	if p.Category != nil && !p.Category.Valid() {
		return invalid("unknown template category %q", *p.Category)
	}
	return nil
}

func checkSubcontractor(s domain.Subcontractor) error {
	if !s.Status.Valid() {
		return invalid("unknown subcontractor status %q", s.Status)
	}
	return checkRating(s.Rating)
}

func checkSubcontractorPatch(p domain.SubcontractorPatch) error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown subcontractor status %q", *p.Status)
	}
	if p.Rating != nil {
		return checkRating(*p.Rating)
	}
	return nil
}

func checkMilestone(m domain.Milestone) error {
	if !m.Status.Valid() {
		return invalid("unknown milestone status %q", m.Status)
	}
	return nil
}

func checkMilestonePatch(p domain.MilestonePatch) error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown milestone status %q", *p.Status)
	}
	return nil
}

// checkAmounts rejects line items whose roll-up leaves the float64 range.
// Negative amounts are accepted.
func checkAmounts(labor []domain.LaborRate, materials []domain.Material, overhead, profit float64) error {
	for _, v := range []float64{overhead, profit} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("percentage %v is not a finite number", v)
		}
	}
	if pricing.Calculate(labor, materials, overhead, profit).Saturated {
		return invalid("pricing amounts exceed the representable range")
	}
	return nil
}

func checkPricing(pc domain.PricingCalculation) error {
	return checkAmounts(pc.LaborRates, pc.Materials, pc.Overhead, pc.Profit)
}

// checkPricingPatch only sees the fields being replaced; the store clamps
// anything that overflows once merged.
func checkPricingPatch(p domain.PricingPatch) error {
	var labor []domain.LaborRate
	var materials []domain.Material
	var overhead, profit float64
	if p.LaborRates != nil {
		labor = *p.LaborRates
	}
	if p.Materials != nil {
		materials = *p.Materials
	}
	if p.Overhead != nil {
		overhead = *p.Overhead
	}
	if p.Profit != nil {
		profit = *p.Profit
	}
	return checkAmounts(labor, materials, overhead, profit)
}
