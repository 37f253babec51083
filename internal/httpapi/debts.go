package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// listDebts returns the netted debt view for a trip. Each pair of members
// appears at most once, with the concept list that explains the amount.
func (s *Server) listDebts(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	debts, err := s.debts.NetDebts(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]netDebtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toNetDebtResponse(d))
	}
	toJSON(w, http.StatusOK, out)
}

// getSummary resolves GET /v1/trips/{id}/summary?user_id=.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		badRequest(w, "user_id is required")
		return
	}
	sum, err := s.debts.Summarize(r.Context(), tripID, userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	sums, err := s.debts.SummarizeAll(r.Context(), tripID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]summaryResponse, 0, len(sums))
	for _, sum := range sums {
		out = append(out, toSummaryResponse(sum))
	}
	toJSON(w, http.StatusOK, out)
}
