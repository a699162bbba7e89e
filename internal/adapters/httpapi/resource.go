package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gcms/internal/store"
	"gcms/pkg/domain"
)

// resource serves list/add/update/remove for one collection. Checks run at
// the boundary only; the stores accept whatever they are given.
type resource[E domain.Entity, P domain.Patch[E]] struct {
	items      *store.Collection[E]
	check      func(E) error
	checkPatch func(P) error
	remove     func(ctx context.Context, id string) error
	// query replaces the plain listing when set, e.g. to honour filters.
	query func(*http.Request) ([]E, error)
}

func (res resource[E, P]) mount(r chi.Router) {
	r.Get("/", res.list)
	r.Post("/", res.create)
	r.Patch("/{id}", res.update)
	r.Delete("/{id}", res.delete)
}

func (res resource[E, P]) list(w http.ResponseWriter, r *http.Request) {
	if res.query == nil {
		writeJSON(w, http.StatusOK, res.items.List())
		return
	}
	items, err := res.query(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// create ignores any id in the body; ids are always generated here.
func (res resource[E, P]) create(w http.ResponseWriter, r *http.Request) {
	var e E
	if err := decode(w, r, &e); err != nil {
		writeFailure(w, err)
		return
	}
	if res.check != nil {
		if err := res.check(e); err != nil {
			writeFailure(w, err)
			return
		}
	}
	added, err := res.items.Create(r.Context(), e)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// update answers 204 whether or not the id exists; a missing id is a no-op.
func (res resource[E, P]) update(w http.ResponseWriter, r *http.Request) {
	var p P
	if err := decode(w, r, &p); err != nil {
		writeFailure(w, err)
		return
	}
	if res.checkPatch != nil {
		if err := res.checkPatch(p); err != nil {
			writeFailure(w, err)
			return
		}
	}
	if err := res.items.Update(r.Context(), chi.URLParam(r, "id"), p); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (res resource[E, P]) delete(w http.ResponseWriter, r *http.Request) {
	remove := res.items.Remove
	if res.remove != nil {
		remove = res.remove
	}
	if err := remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
