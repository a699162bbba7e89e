package samgov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gcms/pkg/domain"
)

// ErrManualEntry means the notice exists but its details must be typed in.
var ErrManualEntry = errors.New("opportunity details require manual entry")

// Lookup fetches opportunity metadata for a notice id.
type Lookup interface {
	Fetch(ctx context.Context, noticeID string) (domain.Opportunity, error)
}

// Placeholder returns the editable default opportunity for a notice.
type Placeholder struct {
	Now func() time.Time
}

// Fetch implements Lookup and never fails.
func (p Placeholder) Fetch(_ context.Context, noticeID string) (domain.Opportunity, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	return domain.Opportunity{
		NoticeID:         noticeID,
		Title:            "New Opportunity",
		PostedDate:       ts,
		ResponseDeadline: ts,
		Description:      "Please enter the opportunity details.",
		Type:             "Contract",
		SetAside:         "Total Small Business",
		Status:           domain.OpportunityNew,
	}, nil
}

// HTTPClient looks notices up at {BaseURL}/opportunities/{noticeId}.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPClient builds a lookup client with a 10s timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: 10 * time.Second}}
}

// Fetch implements Lookup. A 404 maps to ErrManualEntry.
func (c *HTTPClient) Fetch(ctx context.Context, noticeID string) (domain.Opportunity, error) {
	endpoint := c.BaseURL + "/opportunities/" + url.PathEscape(noticeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("lookup %s: %w", noticeID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Opportunity{}, ErrManualEntry
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Opportunity{}, fmt.Errorf("lookup %s: status %d: %s", noticeID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var opp domain.Opportunity
	if err := json.NewDecoder(resp.Body).Decode(&opp); err != nil {
		return domain.Opportunity{}, fmt.Errorf("decode %s: %w", noticeID, err)
	}
	if opp.NoticeID == "" {
		opp.NoticeID = noticeID
	}
	if opp.Status == "" {
		opp.Status = domain.OpportunityNew
	}
	return opp, nil
}
