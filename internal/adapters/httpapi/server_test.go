package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"gcms/internal/app"
	"gcms/internal/infra/persistence/memory"
	"gcms/internal/pricing"
	"gcms/internal/relations"
	"gcms/pkg/domain"
)

func newServer(t *testing.T) (*Server, *app.App) {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := app.New(context.Background(), memory.NewStore(), app.Deps{Registry: reg})
	require.NoError(t, err)
	return New(a, reg), a
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestOpportunityLifecycle(t *testing.T) {
	srv, a := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/opportunities", domain.Opportunity{Title: "Runway repair", Status: domain.OpportunityNew})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[domain.Opportunity](t, rec)
	require.NotEmpty(t, created.ID)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]domain.Opportunity](t, rec), 1)

	rec = do(t, srv, http.MethodPatch, "/api/v1/opportunities/"+created.ID, `{"status":"bidding"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	got, ok := a.Opportunities.Opportunities.Get(created.ID)
	require.True(t, ok)
	require.Equal(t, domain.OpportunityBidding, got.Status)
	require.Equal(t, "Runway repair", got.Title)

	rec = do(t, srv, http.MethodPatch, "/api/v1/opportunities/missing", `{"title":"x"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/v1/opportunities/"+created.ID, `{"status":"sleeping"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeBody[map[string]string](t, rec)["error"], "sleeping")

	rec = do(t, srv, http.MethodPost, "/api/v1/opportunities", domain.Opportunity{ID: created.ID, Status: domain.OpportunityNew})
	require.Equal(t, http.StatusCreated, rec.Code)
	other := decodeBody[domain.Opportunity](t, rec)
	require.NotEqual(t, created.ID, other.ID, "ids in request bodies are ignored")

	for _, id := range []string{created.ID, other.ID, other.ID} {
		rec = do(t, srv, http.MethodDelete, "/api/v1/opportunities/"+id, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	require.Zero(t, a.Opportunities.Opportunities.Len())

	do(t, srv, http.MethodPost, "/api/v1/opportunities", domain.Opportunity{Status: domain.OpportunityWon})
	rec = do(t, srv, http.MethodDelete, "/api/v1/opportunities", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, a.Opportunities.Opportunities.Len())
}

func TestBoundaryValidation(t *testing.T) {
	srv, a := newServer(t)
	cases := []struct {
		name, target, body string
	}{
		{"malformed json", "/api/v1/opportunities", `{"title":`},
		{"progress above range", "/api/v1/proposals", `{"title":"p","status":"draft","progress":101}`},
		{"negative progress", "/api/v1/proposals", `{"title":"p","status":"draft","progress":-1}`},
		{"rating above range", "/api/v1/subcontractors", `{"name":"v","status":"new","rating":5.5}`},
		{"unknown proposal status", "/api/v1/proposals", `{"title":"p","status":"archived"}`},
		{"unknown document type", "/api/v1/documents", `{"name":"d","type":"spreadsheet"}`},
		{"unknown template category", "/api/v1/templates", `{"name":"t","category":"misc"}`},
		{"unknown milestone status", "/api/v1/milestones", `{"title":"m","status":"late"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
	require.Zero(t, a.Workspace.Proposals.Len())
	require.Zero(t, a.Workspace.Subcontractors.Len())

	rec := do(t, srv, http.MethodPost, "/api/v1/subcontractors", `{"name":"v","status":"quoted","rating":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decodeBody[domain.Subcontractor](t, rec)
	rec = do(t, srv, http.MethodPatch, "/api/v1/subcontractors/"+sub.ID, `{"rating":-0.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingEndpoints(t *testing.T) {
	srv, a := newServer(t)
	input := map[string]any{
		"laborRates": []domain.LaborRate{{Role: "Engineer", Rate: 100, Hours: 10}},
		"materials":  []domain.Material{{Item: "Widget", Quantity: 5, UnitPrice: 20}},
		"overhead":   10,
		"profit":     5,
	}
	rec := do(t, srv, http.MethodPost, "/api/v1/pricing/calculate", input)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1270.5, decodeBody[pricing.Breakdown](t, rec).Total)

	input["totalPrice"] = 1
	rec = do(t, srv, http.MethodPost, "/api/v1/pricing", input)
	require.Equal(t, http.StatusCreated, rec.Code)
	pc := decodeBody[domain.PricingCalculation](t, rec)
	require.Equal(t, 1270.5, pc.TotalPrice)

	rec = do(t, srv, http.MethodPatch, "/api/v1/pricing/"+pc.ID, `{"profit":0}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	stored, _ := a.Workspace.Pricing.Get(pc.ID)
	require.Equal(t, 1210.0, stored.TotalPrice)

	rec = do(t, srv, http.MethodGet, "/api/v1/pricing/"+pc.ID+"/workbook", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxType, rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = do(t, srv, http.MethodGet, "/api/v1/pricing/nope/workbook", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	overflowing := `{"laborRates":[{"role":"Lead","rate":1e200,"hours":1e200}]}`
	for _, path := range []string{"/api/v1/pricing", "/api/v1/pricing/calculate"} {
		rec = do(t, srv, http.MethodPost, path, overflowing)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Contains(t, decodeBody[map[string]string](t, rec)["error"], "range")
	}
	rec = do(t, srv, http.MethodPatch, "/api/v1/pricing/"+pc.ID, overflowing)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 1, a.Workspace.Pricing.Len())

	rec = do(t, srv, http.MethodPost, "/api/v1/pricing", `{"laborRates":[{"role":"Lead","rate":-50,"hours":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, -100.0, decodeBody[domain.PricingCalculation](t, rec).TotalPrice)
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/session/login", `{"email":"pm@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[domain.Session](t, rec)
	require.True(t, sess.IsAuthenticated)
	require.NotNil(t, sess.Token)
	require.Equal(t, "mock-jwt-token", *sess.Token)
	require.Equal(t, "pm@example.com", sess.User.Email)

	rec = do(t, srv, http.MethodGet, "/api/v1/session/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeBody[map[string]bool](t, rec)["valid"])

	rec = do(t, srv, http.MethodDelete, "/api/v1/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/v1/session", nil)
	require.False(t, decodeBody[domain.Session](t, rec).IsAuthenticated)

	rec = do(t, srv, http.MethodGet, "/api/v1/session/check", nil)
	require.False(t, decodeBody[map[string]bool](t, rec)["valid"])
}

func TestTemplateResets(t *testing.T) {
	srv, a := newServer(t)
	rec := do(t, srv, http.MethodDelete, "/api/v1/templates/pp-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 7, a.Workspace.Templates.Len())

	rec = do(t, srv, http.MethodPost, "/api/v1/templates/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]domain.Template](t, rec), 8)

	rec = do(t, srv, http.MethodPost, "/api/v1/library/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]domain.Template](t, rec), 8)
}

func TestLibraryFilters(t *testing.T) {
	srv, _ := newServer(t)
	ids := func(target string) []string {
		t.Helper()
		rec := do(t, srv, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []string
		for _, tpl := range decodeBody[[]domain.Template](t, rec) {
			out = append(out, tpl.ID)
		}
		return out
	}
	require.Len(t, ids("/api/v1/library"), 8)
	require.Equal(t, []string{"price-1", "price-2"}, ids("/api/v1/library?category=pricing"))
	require.Equal(t, []string{"pp-2", "tech-2"}, ids("/api/v1/library?tags=matrix"))
	require.Equal(t, []string{"tech-2"}, ids("/api/v1/library?category=technical&tags=matrix,+cost"))

	rec := do(t, srv, http.MethodGet, "/api/v1/library?tags=unheard-of", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/library?category=poetry", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// opaqueBackend hides any optional capabilities of the wrapped backend.
type opaqueBackend struct{ domain.Backend }

func TestStorageKeys(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/storage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"driver":"memory","keys":[]}`, rec.Body.String())

	do(t, srv, http.MethodPost, "/api/v1/milestones", `{"title":"Kickoff","status":"pending"}`)
	rec = do(t, srv, http.MethodGet, "/api/v1/storage", nil)
	require.JSONEq(t, `{"driver":"memory","keys":["gcms-storage"]}`, rec.Body.String())

	a, err := app.New(context.Background(), opaqueBackend{memory.NewStore()}, app.Deps{})
	require.NoError(t, err)
	rec = do(t, New(a, nil), http.MethodGet, "/api/v1/storage", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDocumentAttachments(t *testing.T) {
	srv, a := newServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/documents?name=rfp.txt&type=rfp&description=Main", "hello")
	require.Equal(t, http.StatusCreated, rec.Code)
	doc := decodeBody[domain.Document](t, rec)
	require.Equal(t, domain.DocumentRFP, doc.Type)
	require.NotNil(t, doc.Size)
	require.EqualValues(t, 5, *doc.Size)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/documents", nil)
	require.Len(t, decodeBody[[]domain.Document](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/api/v1/documents/"+doc.ID+"/content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/documents/"+doc.ID+"/link", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, doc.URL, decodeBody[map[string]string](t, rec)["url"])

	rec = do(t, srv, http.MethodPost, "/api/v1/opportunities/opp-1/documents?name=x.txt&type=bogus", "x")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, a.Documents.Documents.Len())

	rec = do(t, srv, http.MethodGet, "/api/v1/documents/"+doc.ID+"/content", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/opp-1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestImportAndProposalDraft(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/opportunities/import", `{"url":"https://example.com/nothing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/opportunities/import", `{"url":"https://sam.gov/opp/abc123/view"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	opp := decodeBody[domain.Opportunity](t, rec)
	require.Equal(t, "abc123", opp.NoticeID)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/"+opp.ID+"/proposal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]map[string]string](t, rec), 4)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/"+opp.ID+"/proposal?format=markdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# ")

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/"+opp.ID+"/proposal?format=pdf", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/missing/proposal", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/opportunities/workbook", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxType, rec.Header().Get("Content-Type"))
}

func TestIntegrityAndMetrics(t *testing.T) {
	srv, _ := newServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/integrity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())

	do(t, srv, http.MethodPost, "/api/v1/milestones", `{"title":"Kickoff","status":"pending","opportunityId":"gone"}`)
	rec = do(t, srv, http.MethodGet, "/api/v1/integrity", nil)
	dangling := decodeBody[[]relations.DanglingReference](t, rec)
	require.Len(t, dangling, 1)
	require.Equal(t, "gone", dangling[0].OpportunityID)

	rec = do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gcms_store_mutations_total")
}
