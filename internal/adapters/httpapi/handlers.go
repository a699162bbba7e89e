package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gcms/internal/attachments"
	"gcms/internal/export"
	"gcms/internal/pricing"
	"gcms/internal/relations"
	"gcms/internal/templates"
	"gcms/pkg/domain"
)

const (
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	linkExpiry = 15 * time.Minute
)

func (s *Server) clearOpportunities(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Opportunities.ClearOpportunities(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importOpportunity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(w, r, &body); err != nil {
		writeFailure(w, err)
		return
	}
	opp, err := s.app.Importer.ImportURL(r.Context(), body.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, opp)
}

func (s *Server) opportunityDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Documents.DocumentsByOpportunity(chi.URLParam(r, "id")))
}

// uploadDocument takes the raw file as the body; name, type and description
// come from the query string.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	up := attachments.Upload{
		OpportunityID: chi.URLParam(r, "id"),
		Name:          q.Get("name"),
		Type:          domain.DocumentType(q.Get("type")),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          http.MaxBytesReader(w, r.Body, 32<<20),
	}
	if up.Type != "" && !up.Type.Valid() {
		writeFailure(w, invalid("unknown document type %q", up.Type))
		return
	}
	if q.Has("description") {
		d := q.Get("description")
		up.Description = &d
	}
	doc, err := s.app.Attachments.Upload(r.Context(), up)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) documentContent(w http.ResponseWriter, r *http.Request) {
	info, rc, err := s.app.Attachments.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("document content copy failed", "document", chi.URLParam(r, "id"), "error", err)
	}
}

func (s *Server) documentLink(w http.ResponseWriter, r *http.Request) {
	url, err := s.app.Attachments.Link(r.Context(), chi.URLParam(r, "id"), linkExpiry)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// proposalDraft renders the generated sections for an opportunity using its
// first pricing calculation, if any. format is json (default), markdown or word.
func (s *Server) proposalDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	opp, ok := relations.FindOpportunity(s.app.Opportunities.Opportunities.List(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "opportunity not found")
		return
	}
	var pc domain.PricingCalculation
	if pcs := relations.PricingForOpportunity(s.app.Workspace.Pricing.List(), id); len(pcs) > 0 {
		pc = pcs[0]
	}
	sections := export.GenerateProposal(opp, pc)
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, sections)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, export.MarkdownContent(sections))
	case "word":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, export.WordContent(sections))
	default:
		writeFailure(w, invalid("unknown format %q", r.URL.Query().Get("format")))
	}
}

func (s *Server) opportunitiesWorkbook(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteOpportunitiesWorkbook(&buf, s.app.Opportunities.Opportunities.List()); err != nil {
		writeFailure(w, err)
		return
	}
	writeFile(w, "opportunities.xlsx", buf.Bytes())
}

func (s *Server) pricingWorkbook(w http.ResponseWriter, r *http.Request) {
	pc, ok := s.app.Workspace.Pricing.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "pricing calculation not found")
		return
	}
	title := relations.OpportunityLabel(s.app.Opportunities.Opportunities.List(), pc.OpportunityID)
	var buf bytes.Buffer
	if err := export.WritePricingWorkbook(&buf, title, pc); err != nil {
		writeFailure(w, err)
		return
	}
	writeFile(w, "pricing-"+pc.ID+".xlsx", buf.Bytes())
}

func writeFile(w http.ResponseWriter, name string, body []byte) {
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) resetTemplates(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Workspace.ResetTemplates(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Workspace.Templates.List())
}

func (s *Server) resetLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Templates.ResetToDefaults(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Templates.Templates.List())
}

func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		LaborRates []domain.LaborRate `json:"laborRates"`
		Materials  []domain.Material  `json:"materials"`
		Overhead   float64            `json:"overhead"`
		Profit     float64            `json:"profit"`
	}
	if err := decode(w, r, &in); err != nil {
		writeFailure(w, err)
		return
	}
	if err := checkAmounts(in.LaborRates, in.Materials, in.Overhead, in.Profit); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pricing.Calculate(in.LaborRates, in.Materials, in.Overhead, in.Profit))
}

func (s *Server) currentSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Session.Current())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Session.Logout(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &creds); err != nil {
		writeFailure(w, err)
		return
	}
	if _, err := s.app.Session.Login(r.Context(), s.app.Auth, creds.Email, creds.Password); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Session.Current())
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := decode(w, r, &reg); err != nil {
		writeFailure(w, err)
		return
	}
	if _, err := s.app.Session.Register(r.Context(), s.app.Auth, reg); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.app.Session.Current())
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) {
	ok, err := s.app.CheckSession(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) integrity(w http.ResponseWriter, _ *http.Request) {
	dangling := s.app.Integrity()
	if dangling == nil {
		dangling = []relations.DanglingReference{}
	}
	writeJSON(w, http.StatusOK, dangling)
}

// queryLibrary narrows the library by ?category= and ?tags=a,b. Both filters
// combine; a template matches tags when it carries any of them.
func (s *Server) queryLibrary(r *http.Request) ([]domain.Template, error) {
	q := r.URL.Query()
	lib := s.app.Templates
	var tags []string
	for _, tag := range strings.Split(q.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	var out []domain.Template
	switch category := domain.TemplateCategory(q.Get("category")); {
	case category != "" && !category.Valid():
		return nil, invalid("unknown category %q", category)
	case category != "" && len(tags) > 0:
		out = templates.ByTags(lib.ByCategory(category), tags)
	case category != "":
		out = lib.ByCategory(category)
	case len(tags) > 0:
		out = lib.ByTags(tags)
	default:
		out = lib.Templates.List()
	}
	if out == nil {
		out = []domain.Template{}
	}
	return out, nil
}

func (s *Server) storage(w http.ResponseWriter, r *http.Request) {
	keys, err := s.app.StorageKeys(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"driver": s.app.Backend.Driver(), "keys": keys})
}
