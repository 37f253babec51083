package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/service/expense"
	"github.com/tinoosan/tripledger/internal/split"
)

func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostExpense).(expense.CreateInput)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	e, splits, err := s.expenses.Create(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toExpenseResponse(e, splits))
}

// listExpenses resolves GET /v1/trips/{id}/expenses with an optional
// category_id filter.
func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid category_id")
			return
		}
		categoryID = &id
	}
	expenses, err := s.expenses.List(r.Context(), tripID, categoryID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e, nil))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	e, splits, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(e, splits))
}

// patchExpense edits concept, amount and/or date. An amount change keeps the
// stored shares and recomputes the split amounts.
func (s *Server) patchExpense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req patchExpenseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ActorID == uuid.Nil {
		badRequest(w, "actor_id is required")
		return
	}
	e, err := s.expenses.Update(r.Context(), expense.UpdateInput{
		ExpenseID:   id,
		ActorID:     req.ActorID,
		Concept:     req.Concept,
		AmountMinor: req.AmountMinor,
		Date:        req.Date,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	_, splits, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(e, splits))
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	actorID, err := uuid.Parse(r.URL.Query().Get("actor_id"))
	if err != nil {
		badRequest(w, "actor_id is required")
		return
	}
	if err := s.expenses.Delete(r.Context(), id, actorID); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putSplits replaces the expense's division wholesale.
func (s *Server) putSplits(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req putSplitsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ActorID == uuid.Nil {
		badRequest(w, "actor_id is required")
		return
	}
	splits, err := s.expenses.ReplaceShares(r.Context(), id, req.ActorID, toShares(req.Shares))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]splitResponse, 0, len(splits))
	for _, sp := range splits {
		out = append(out, splitResponse{
			ParticipantID: sp.ParticipantID,
			ShareBP:       sp.ShareBP,
			AmountMinor:   ledger.MinorUnits(sp.Amount),
		})
	}
	toJSON(w, http.StatusOK, out)
}

// splitPreview computes a division without persisting anything. Callers pass
// either participant_ids for the equal division or explicit share rows.
func (s *Server) splitPreview(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req splitPreviewRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.AmountMinor <= 0 || len(req.Currency) != 3 {
		badRequest(w, "amount_minor and a 3-letter currency are required")
		return
	}
	amount := ledger.AmountFromMinor(req.Currency, req.AmountMinor)
	var (
		splits []ledger.Split
		err    error
	)
	switch {
	case len(req.Shares) > 0:
		splits, err = split.Compute(amount, toShares(req.Shares))
	case len(req.ParticipantIDs) > 0:
		splits, err = split.ComputeEqual(amount, req.ParticipantIDs)
	default:
		badRequest(w, "participant_ids or shares are required")
		return
	}
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	resp := splitPreviewResponse{Splits: make([]splitResponse, 0, len(splits))}
	for _, sp := range splits {
		resp.Splits = append(resp.Splits, splitResponse{
			ParticipantID: sp.ParticipantID,
			ShareBP:       sp.ShareBP,
			AmountMinor:   ledger.MinorUnits(sp.Amount),
		})
	}
	toJSON(w, http.StatusOK, resp)
}
