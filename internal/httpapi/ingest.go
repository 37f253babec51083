package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ingest"
)

// postExpenseDraft asks the extractor for a pre-filled expense from media.
// Nothing is persisted; the draft goes back to the client for review.
func (s *Server) postExpenseDraft(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeErr(w, http.StatusServiceUnavailable, "extractor not configured", "extractor_unavailable")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req postDraftRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.TripID == uuid.Nil {
		badRequest(w, "trip_id is required")
		return
	}
	if req.Text == "" && req.FilePath == "" {
		badRequest(w, "text or file_path is required")
		return
	}
	t, err := s.trips.Get(r.Context(), req.TripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	draft, err := s.extractor.ExtractDraft(r.Context(), ingest.Input{
		Text:     req.Text,
		FileType: req.FileType,
		FilePath: req.FilePath,
		Currency: t.Currency,
	})
	if err != nil {
		s.log.Error("extract draft", "trip_id", req.TripID, "err", err)
		writeErr(w, http.StatusBadGateway, "extraction failed", "extractor_error")
		return
	}
	toJSON(w, http.StatusOK, draftResponse{
		Concept:     draft.Concept,
		AmountMinor: draft.AmountMinor,
		Currency:    t.Currency,
	})
}

// getNarrative returns a readable account of the trip's spending. The result
// is memoized per trip until the expense count changes.
func (s *Server) getNarrative(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeErr(w, http.StatusServiceUnavailable, "narrator not configured", "narrator_unavailable")
		return
	}
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	t, err := s.trips.Get(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	expenses, err := s.expenses.List(r.Context(), tripID, nil)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	sums, err := s.debts.SummarizeAll(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	text, err := s.narrator.Narrative(r.Context(), t, expenses, sums)
	if err != nil {
		s.log.Error("narrative", "trip_id", tripID, "err", err)
		writeErr(w, http.StatusBadGateway, "narrative failed", "narrator_error")
		return
	}
	toJSON(w, http.StatusOK, narrativeResponse{TripID: tripID, Narrative: text})
}
