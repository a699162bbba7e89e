package samgov

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gcms/internal/infra/persistence/memory"
	"gcms/internal/store"
	"gcms/pkg/domain"
)

func TestExtractNoticeID(t *testing.T) {
	cases := []struct {
		url  string
		id   string
		want bool
	}{
		{"https://sam.gov/opp/0a1b2c3d4e5f/view", "0a1b2c3d4e5f", true},
		{"https://SAM.GOV/opp/ABCDEF-0123/view?keywords=x", "ABCDEF-0123", true},
		{"sam.gov/opp/deadbeef/view", "deadbeef", true},
		{"https://sam.gov/opp/xyz/view", "", false},
		{"https://sam.gov/content/opportunities", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		id, ok := ExtractNoticeID(tc.url)
		if ok != tc.want || id != tc.id {
			t.Errorf("ExtractNoticeID(%q) = %q,%v want %q,%v", tc.url, id, ok, tc.id, tc.want)
		}
		if ValidURL(tc.url) != tc.want {
			t.Errorf("ValidURL(%q) mismatch", tc.url)
		}
	}
	if OpportunityURL("abc") != "https://sam.gov/opp/abc/view" {
		t.Fatalf("unexpected opportunity url")
	}
}

func TestPlaceholder(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	opp, err := Placeholder{Now: func() time.Time { return now }}.Fetch(context.Background(), "abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if opp.NoticeID != "abc" || opp.Title != "New Opportunity" || opp.Status != domain.OpportunityNew ||
		opp.Type != "Contract" || opp.SetAside != "Total Small Business" || opp.PostedDate != "2024-05-06T07:08:09Z" {
		t.Fatalf("unexpected placeholder %+v", opp)
	}
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/opportunities/abc":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"title":"Runway Repair","agency":"FAA","naicsCode":"237310"}`))
		case "/opportunities/gone":
			http.NotFound(w, r)
		case "/opportunities/bad":
			_, _ = w.Write([]byte(`{`))
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL + "/")
	ctx := context.Background()

	opp, err := c.Fetch(ctx, "abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if opp.Title != "Runway Repair" || opp.NoticeID != "abc" || opp.Status != domain.OpportunityNew {
		t.Fatalf("unexpected opportunity %+v", opp)
	}
	if _, err := c.Fetch(ctx, "gone"); !errors.Is(err, ErrManualEntry) {
		t.Fatalf("expected ErrManualEntry, got %v", err)
	}
	if _, err := c.Fetch(ctx, "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := c.Fetch(ctx, "other"); err == nil || errors.Is(err, ErrManualEntry) {
		t.Fatalf("expected status error, got %v", err)
	}
}

type countingLookup struct {
	calls atomic.Int32
	opp   domain.Opportunity
	err   error
}

func (c *countingLookup) Fetch(context.Context, string) (domain.Opportunity, error) {
	c.calls.Add(1)
	return c.opp, c.err
}

func openOpportunities(t *testing.T) *store.OpportunityStore {
	t.Helper()
	s, err := store.OpenOpportunities(context.Background(), memory.NewStore())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestImporter(t *testing.T) {
	ctx := context.Background()
	opps := openOpportunities(t)

	found := &countingLookup{opp: domain.Opportunity{ID: "remote-id", NoticeID: "abc", Title: "Runway Repair", Status: domain.OpportunityNew}}
	got, err := NewImporter(found, opps.Opportunities, nil).ImportURL(ctx, "https://sam.gov/opp/abc/view")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.ID == "" || got.ID == "remote-id" || got.Title != "Runway Repair" || found.calls.Load() != 1 {
		t.Fatalf("unexpected import %+v calls=%d", got, found.calls.Load())
	}

	manual := &countingLookup{err: ErrManualEntry}
	got, err = NewImporter(manual, opps.Opportunities, nil).ImportURL(ctx, "https://sam.gov/opp/def/view")
	if err != nil || got.Title != "New Opportunity" || got.NoticeID != "def" || manual.calls.Load() != 1 {
		t.Fatalf("expected placeholder import, got %+v %v", got, err)
	}

	failing := &countingLookup{err: errors.New("timeout")}
	if _, err := NewImporter(failing, opps.Opportunities, nil).ImportURL(ctx, "https://sam.gov/opp/eee/view"); err == nil {
		t.Fatalf("expected lookup error")
	}
	if failing.calls.Load() != 1 {
		t.Fatalf("lookup must be called exactly once, got %d", failing.calls.Load())
	}

	if _, err := NewImporter(nil, opps.Opportunities, nil).ImportURL(ctx, "https://example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	got, err = NewImporter(nil, opps.Opportunities, nil).ImportURL(ctx, "https://sam.gov/opp/f00/view")
	if err != nil || got.NoticeID != "f00" {
		t.Fatalf("nil lookup should import a placeholder: %+v %v", got, err)
	}
	if opps.Opportunities.Len() != 3 {
		t.Fatalf("expected 3 stored opportunities, got %d", opps.Opportunities.Len())
	}
}
