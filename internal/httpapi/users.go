package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// postUser registers a new user.
func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostUser).(postUserRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	u, err := s.users.Register(r.Context(), req.Handle, req.Name, req.Email, req.Password)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toUserResponse(u))
}

// login verifies handle + password and returns the user.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	u, err := s.users.Authenticate(r.Context(), req.Handle, req.Password)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(u))
}

// findUserByHandle resolves GET /v1/users?handle=.
func (s *Server) findUserByHandle(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		badRequest(w, "handle is required")
		return
	}
	u, err := s.users.FindByHandle(r.Context(), handle)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toUserResponse(u))
}
