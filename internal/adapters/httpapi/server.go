// Package httpapi exposes the stores over JSON HTTP for the UI.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gcms/internal/app"
	"gcms/pkg/domain"
)

// Server routes requests to the stores of one App.
type Server struct {
	app      *app.App
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	router   chi.Router
}

// New builds the router. A nil gatherer leaves /metrics unmounted.
func New(a *app.App, gatherer prometheus.Gatherer) *Server {
	s := &Server{app: a, logger: a.Logger, gatherer: gatherer}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	a := s.app
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/opportunities", func(r chi.Router) {
			resource[domain.Opportunity, domain.OpportunityPatch]{
				items:      a.Opportunities.Opportunities,
				check:      checkOpportunity,
				checkPatch: checkOpportunityPatch,
			}.mount(r)
			r.Delete("/", s.clearOpportunities)
			r.Post("/import", s.importOpportunity)
			r.Get("/workbook", s.opportunitiesWorkbook)
			r.Get("/{id}/documents", s.opportunityDocuments)
			r.Post("/{id}/documents", s.uploadDocument)
			r.Get("/{id}/proposal", s.proposalDraft)
		})
		r.Route("/documents", func(r chi.Router) {
			resource[domain.Document, domain.DocumentPatch]{
				items:      a.Documents.Documents,
				check:      checkDocument,
				checkPatch: checkDocumentPatch,
				remove:     a.Attachments.Delete,
			}.mount(r)
			r.Get("/{id}/content", s.documentContent)
			r.Get("/{id}/link", s.documentLink)
		})
		r.Route("/proposals", func(r chi.Router) {
			resource[domain.Proposal, domain.ProposalPatch]{
				items:      a.Workspace.Proposals,
				check:      checkProposal,
				checkPatch: checkProposalPatch,
			}.mount(r)
		})
		r.Route("/templates", func(r chi.Router) {
			resource[domain.Template, domain.TemplatePatch]{
				items:      a.Workspace.Templates,
				check:      checkTemplate,
				checkPatch: checkTemplatePatch,
			}.mount(r)
			r.Post("/reset", s.resetTemplates)
		})
		r.Route("/library", func(r chi.Router) {
			resource[domain.Template, domain.TemplatePatch]{
				items:      a.Templates.Templates,
				check:      checkTemplate,
				checkPatch: checkTemplatePatch,
				query:      s.queryLibrary,
			}.mount(r)
			r.Post("/reset", s.resetLibrary)
		})
		r.Route("/pricing", func(r chi.Router) {
			resource[domain.PricingCalculation, domain.PricingPatch]{
				items:      a.Workspace.Pricing,
				check:      checkPricing,
				checkPatch: checkPricingPatch,
			}.mount(r)
			r.Post("/calculate", s.calculate)
			r.Get("/{id}/workbook", s.pricingWorkbook)
		})
		r.Route("/subcontractors", func(r chi.Router) {
			resource[domain.Subcontractor, domain.SubcontractorPatch]{
				items:      a.Workspace.Subcontractors,
				check:      checkSubcontractor,
				checkPatch: checkSubcontractorPatch,
			}.mount(r)
		})
		r.Route("/milestones", func(r chi.Router) {
			resource[domain.Milestone, domain.MilestonePatch]{
				items:      a.Workspace.Milestones,
				check:      checkMilestone,
				checkPatch: checkMilestonePatch,
			}.mount(r)
		})
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.currentSession)
			r.Delete("/", s.logout)
			r.Post("/login", s.login)
			r.Post("/register", s.register)
			r.Get("/check", s.checkSession)
		})
		r.Get("/integrity", s.integrity)
		r.Get("/storage", s.storage)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
