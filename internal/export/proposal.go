// Package export renders stored records into documents: proposal drafts as
// text or markdown and pricing or opportunity workbooks as xlsx. It only
// reads records.
package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gcms/internal/pricing"
	"gcms/pkg/domain"
)

// Section is one titled part of a generated proposal.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GenerateProposal drafts the four standard sections for opp, with the
// pricing section built from pc's roll-up.
func GenerateProposal(opp domain.Opportunity, pc domain.PricingCalculation) []Section {
	return []Section{
		{Title: "Executive Summary", Content: executiveSummary(opp)},
		{Title: "Technical Approach", Content: technicalApproach()},
		{Title: "Past Performance", Content: pastPerformance()},
		{Title: "Pricing", Content: pricingSection(pc)},
	}
}

func executiveSummary(opp domain.Opportunity) string {
	return fmt.Sprintf(`# Executive Summary

## Overview
This proposal is in response to %s for %s, issued by %s.

## Our Approach
[Company Name] proposes a comprehensive solution that meets or exceeds all requirements...`,
		opp.NoticeID, opp.Title, opp.Agency)
}

func technicalApproach() string {
	return `# Technical Approach

## Understanding of Requirements
[Company Name] thoroughly understands the requirements outlined in the Statement of Work...

## Technical Solution
Our approach incorporates industry best practices and proven methodologies...`
}

func pastPerformance() string {
	return `# Past Performance

## Reference 1
[Contract details and performance description...]

## Reference 2
[Contract details and performance description...]`
}

func pricingSection(pc domain.PricingCalculation) string {
	b := pricing.Of(pc)
	var sb strings.Builder
	sb.WriteString("# Price Proposal\n\n## Labor Costs\n")
	for _, l := range pc.LaborRates {
		fmt.Fprintf(&sb, "- %s: $%s/hr × %s hours = $%s\n", l.Role, Money(l.Rate), Number(l.Hours), Money(l.Rate*l.Hours))
	}
	fmt.Fprintf(&sb, "\nTotal Labor: $%s\n\n## Materials\n", Money(b.LaborTotal))
	for _, m := range pc.Materials {
		fmt.Fprintf(&sb, "- %s: $%s × %s = $%s\n", m.Item, Money(m.UnitPrice), Number(m.Quantity), Money(m.UnitPrice*m.Quantity))
	}
	fmt.Fprintf(&sb, "\nTotal Materials: $%s\n\n## Cost Summary\n", Money(b.MaterialsTotal))
	fmt.Fprintf(&sb, "- Direct Costs: $%s\n", Money(b.Subtotal))
	fmt.Fprintf(&sb, "- Overhead (%s%%): $%s\n", Number(pc.Overhead), Money(b.OverheadAmount))
	fmt.Fprintf(&sb, "- Profit (%s%%): $%s\n\n", Number(pc.Profit), Money(b.ProfitAmount))
	fmt.Fprintf(&sb, "Total Proposed Price: $%s", Money(b.Total))
	return sb.String()
}

// WordContent joins sections as plain titled blocks.
func WordContent(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+"\n\n"+s.Content)
	}
	return strings.Join(parts, "\n\n")
}

// MarkdownContent joins sections under level-one headings.
func MarkdownContent(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, "# "+s.Title+"\n\n"+s.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Money formats an amount rounded to cents with thousands separators and
// without trailing zeros, e.g. 1270.5 -> "1,270.5".
func Money(v float64) string {
	return group(decimal.NewFromFloat(v).Round(2).String())
}

// Number formats a quantity the same way with up to three decimals.
func Number(v float64) string {
	return group(decimal.NewFromFloat(v).Round(3).String())
}

func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if hasFrac {
		return sign + sb.String() + "." + frac
	}
	return sign + sb.String()
}
