package samgov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gcms/pkg/domain"
)

// ErrInvalidURL is returned for links that carry no notice id.
var ErrInvalidURL = errors.New("not a SAM.gov opportunity link")

// Opportunities is the collection imported opportunities are added to. Create
// assigns a fresh id.
type Opportunities interface {
	Create(ctx context.Context, o domain.Opportunity) (domain.Opportunity, error)
}

// Importer turns a SAM.gov link into a stored opportunity.
type Importer struct {
	lookup   Lookup
	fallback Lookup
	opps     Opportunities
	logger   *slog.Logger
}

// NewImporter builds an Importer. A nil lookup imports placeholders only.
func NewImporter(lookup Lookup, opps Opportunities, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{lookup: lookup, fallback: Placeholder{}, opps: opps, logger: logger}
}

// ImportURL extracts the notice id, calls the lookup once and adds the result
// under a fresh id. ErrManualEntry falls back to the placeholder; any other
// lookup error is returned and nothing is added.
func (i *Importer) ImportURL(ctx context.Context, link string) (domain.Opportunity, error) {
	noticeID, ok := ExtractNoticeID(link)
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("%q: %w", link, ErrInvalidURL)
	}
	lookup := i.lookup
	if lookup == nil {
		lookup = i.fallback
	}
	opp, err := lookup.Fetch(ctx, noticeID)
	if errors.Is(err, ErrManualEntry) {
		i.logger.Info("opportunity needs manual entry", "notice", noticeID)
		opp, err = i.fallback.Fetch(ctx, noticeID)
	}
	if err != nil {
		return domain.Opportunity{}, err
	}
	added, err := i.opps.Create(ctx, opp)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("add imported opportunity: %w", err)
	}
	i.logger.Debug("opportunity imported", "id", added.ID, "notice", noticeID)
	return added, nil
}
