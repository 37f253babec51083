package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ledger"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	cats, err := s.trips.Categories(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postCategory(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req postCategoryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ActorID == uuid.Nil || strings.TrimSpace(req.Name) == "" {
		badRequest(w, "actor_id and name are required")
		return
	}
	c, err := s.trips.CreateCategory(r.Context(), tripID, req.ActorID, req.Name, req.Icon, req.Color)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// deleteCategory removes a category; expenses that used it become
// uncategorized. The actor comes from the query to keep DELETE bodyless.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := uuid.Parse(r.URL.Query().Get("actor_id"))
	if err != nil {
		badRequest(w, "actor_id is required")
		return
	}
	if err := s.trips.DeleteCategory(r.Context(), catID, actorID); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categoryTotals(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	totals, err := s.expenses.CategoryTotals(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]categoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalResponse{
			Category:   toCategoryResponse(t.Category),
			Count:      t.Count,
			TotalMinor: ledger.MinorUnits(t.Total),
		})
	}
	toJSON(w, http.StatusOK, out)
}
