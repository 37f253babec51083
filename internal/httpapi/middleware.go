package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/meta"
	"github.com/tinoosan/tripledger/internal/service/expense"
	"github.com/tinoosan/tripledger/internal/split"
)

type ctxKey string

const ctxKeyPostUser ctxKey = "validatedPostUser"
const ctxKeyPostTrip ctxKey = "validatedPostTrip"
const ctxKeyPostExpense ctxKey = "validatedPostExpense"

// validatePostUser parses and validates POST /v1/users and stores the request
// in the context for the handler.
func (s *Server) validatePostUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postUserRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if strings.TrimSpace(req.Handle) == "" || strings.TrimSpace(req.Name) == "" {
				badRequest(w, "handle and name are required")
				return
			}
			if len(req.Password) < 6 {
				badRequest(w, "password must be at least 6 characters")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostUser, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTrip parses POST /v1/trips.
func (s *Server) validatePostTrip() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTripRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if strings.TrimSpace(req.Name) == "" {
				badRequest(w, "name is required")
				return
			}
			if req.CreatedBy == uuid.Nil {
				badRequest(w, "created_by is required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTrip, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostExpense parses POST /v1/expenses, checks the metadata and share
// rows up front, and stores the service input in the context.
func (s *Server) validatePostExpense() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postExpenseRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.TripID == uuid.Nil || req.PayerID == uuid.Nil {
				badRequest(w, "trip_id and payer_id are required")
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, err.Error(), "validation_error")
					return
				}
			}
			in := expense.CreateInput{
				TripID:      req.TripID,
				PayerID:     req.PayerID,
				CategoryID:  req.CategoryID,
				Concept:     req.Concept,
				AmountMinor: req.AmountMinor,
				Date:        req.Date,
				Metadata:    meta.New(req.Metadata),
			}
			if req.Shares != nil {
				in.Shares = toShares(req.Shares)
				if err := split.Validate(in.Shares); err != nil {
					unprocessable(w, err.Error(), "invalid_split")
					return
				}
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostExpense, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toShares(reqs []shareRequest) []split.Share {
	out := make([]split.Share, 0, len(reqs))
	for _, sh := range reqs {
		out = append(out, split.Share{ParticipantID: sh.ParticipantID, BP: sh.ShareBP})
	}
	return out
}
