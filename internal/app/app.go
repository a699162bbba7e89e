// Package app wires the five stores and their collaborators onto one backend.
// Every App owns its own store instances; nothing is global.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"gcms/internal/attachments"
	"gcms/internal/auth"
	"gcms/internal/blob"
	"gcms/internal/config"
	"gcms/internal/infra/persistence"
	"gcms/internal/observability"
	"gcms/internal/relations"
	"gcms/internal/samgov"
	"gcms/internal/store"
	"gcms/pkg/domain"
)

// App is the assembled domain layer.
type App struct {
	Backend       domain.Backend
	Blobs         blob.Store
	Workspace     *store.WorkspaceStore
	Opportunities *store.OpportunityStore
	Documents     *store.DocumentStore
	Templates     *store.TemplateStore
	Session       *store.SessionStore
	Attachments   *attachments.Service
	Importer      *samgov.Importer
	Auth          domain.Authenticator
	Tokens        auth.Validator
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

// Deps are the collaborators New needs. Nil fields get working defaults: a
// discarding logger, a fresh registry, the in-memory blob store, the demo
// authenticator and placeholder-only imports.
type Deps struct {
	Logger   *slog.Logger
	Registry prometheus.Registerer
	Blobs    blob.Store
	Auth     domain.Authenticator
	Tokens   auth.Validator
	Lookup   samgov.Lookup
	Options  []store.Option
}

// New opens every store on backend.
func New(ctx context.Context, backend domain.Backend, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := observability.NewMetrics(reg)
	opts := append([]store.Option{store.WithLogger(logger), store.WithRecorder(metrics)}, deps.Options...)

	a := &App{Backend: backend, Metrics: metrics, Logger: logger}
	var err error
	if a.Workspace, err = store.OpenWorkspace(ctx, backend, opts...); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	if a.Opportunities, err = store.OpenOpportunities(ctx, backend, opts...); err != nil {
		return nil, fmt.Errorf("open opportunities: %w", err)
	}
	if a.Documents, err = store.OpenDocuments(ctx, backend, opts...); err != nil {
		return nil, fmt.Errorf("open documents: %w", err)
	}
	if a.Templates, err = store.OpenTemplates(ctx, backend, opts...); err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	if a.Session, err = store.OpenSession(ctx, backend, opts...); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	a.Blobs = deps.Blobs
	if a.Blobs == nil {
		a.Blobs = blob.NewMemory()
	}
	a.Attachments = attachments.New(a.Blobs, a.Documents.Documents, logger)
	a.Importer = samgov.NewImporter(deps.Lookup, a.Opportunities.Opportunities, logger)

	a.Auth, a.Tokens = deps.Auth, deps.Tokens
	if a.Auth == nil {
		a.Auth = auth.Demo{}
	}
	if a.Tokens == nil {
		if v, ok := a.Auth.(auth.Validator); ok {
			a.Tokens = v
		} else {
			a.Tokens = auth.Demo{}
		}
	}
	return a, nil
}

// Open resolves the backend, blob store and collaborators from cfg.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	backend, err := persistence.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = persistence.Close(backend)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	deps := Deps{Logger: logger, Registry: reg, Blobs: blobs}
	if cfg.JWTSecret != "" {
		local, err := auth.NewLocal(cfg.JWTSecret, 0)
		if err != nil {
			_ = persistence.Close(backend)
			return nil, err
		}
		deps.Auth, deps.Tokens = local, local
	}
	if cfg.SAMBaseURL != "" {
		deps.Lookup = samgov.NewHTTPClient(cfg.SAMBaseURL)
	}
	a, err := New(ctx, backend, deps)
	if err != nil {
		_ = persistence.Close(backend)
		return nil, err
	}
	if logger != nil {
		logger.Info("stores opened", "storage", backend.Driver(), "blob", string(blobs.Driver()))
	}
	return a, nil
}

// CheckSession signs the session out when its token no longer validates.
func (a *App) CheckSession(ctx context.Context) (bool, error) {
	return auth.CheckSession(ctx, a.Session, a.Tokens)
}

// Close releases the backend.
func (a *App) Close() error {
	return persistence.Close(a.Backend)
}

// StorageKeys lists the keys the backend holds. Backends that cannot
// enumerate keys return errors.ErrUnsupported.
func (a *App) StorageKeys(ctx context.Context) ([]string, error) {
	lister, ok := a.Backend.(domain.KeyLister)
	if !ok {
		return nil, fmt.Errorf("list keys on %s backend: %w", a.Backend.Driver(), errors.ErrUnsupported)
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// ErrUnknownCollection is returned by List for unrecognised names.
var ErrUnknownCollection = errors.New("unknown collection")

// Collections names every listable collection. "templates" is the workspace
// template set; "library" is the standalone template library.
var Collections = []string{
	"opportunities", "documents", "proposals", "templates", "library",
	"pricing", "subcontractors", "milestones",
}

// List returns a copy of the named collection.
func (a *App) List(name string) (any, error) {
	switch name {
	case "opportunities":
		return a.Opportunities.Opportunities.List(), nil
	case "documents":
		return a.Documents.Documents.List(), nil
	case "proposals":
		return a.Workspace.Proposals.List(), nil
	case "templates":
		return a.Workspace.Templates.List(), nil
	case "library":
		return a.Templates.Templates.List(), nil
	case "pricing":
		return a.Workspace.Pricing.List(), nil
	case "subcontractors":
		return a.Workspace.Subcontractors.List(), nil
	case "milestones":
		return a.Workspace.Milestones.List(), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}
}

// Sources snapshots every collection that references opportunities.
func (a *App) Sources() relations.Sources {
	return relations.Sources{
		Opportunities:  a.Opportunities.Opportunities.List(),
		Documents:      a.Documents.Documents.List(),
		Proposals:      a.Workspace.Proposals.List(),
		Pricing:        a.Workspace.Pricing.List(),
		Subcontractors: a.Workspace.Subcontractors.List(),
		Milestones:     a.Workspace.Milestones.List(),
	}
}

// Integrity lists references to opportunities that no longer exist. It
// never modifies anything.
func (a *App) Integrity() []relations.DanglingReference {
	return relations.CheckIntegrity(a.Sources())
}
