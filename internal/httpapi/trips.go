package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) postTrip(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostTrip).(postTripRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	t, err := s.trips.Create(r.Context(), req.Name, req.Description, req.Currency, req.CreatedBy)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toTripResponse(t))
}

// listTrips resolves GET /v1/trips?user_id=.
func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		badRequest(w, "user_id is required")
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return
	}
	trips, err := s.trips.List(r.Context(), userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	t, err := s.trips.Get(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTripResponse(t))
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	members, err := s.trips.Members(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]userResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toUserResponse(m))
	}
	toJSON(w, http.StatusOK, out)
}

// postMember adds an existing user to the trip by handle. Only current
// members may invite.
func (s *Server) postMember(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req postMemberRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.ActorID == uuid.Nil || req.Handle == "" {
		badRequest(w, "actor_id and handle are required")
		return
	}
	u, err := s.trips.AddMemberByHandle(r.Context(), tripID, req.ActorID, req.Handle)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toUserResponse(u))
}
