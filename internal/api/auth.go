// ABOUTME: Handlers for the public login, authenticate and status endpoints
// ABOUTME: Successful authenticate returns the bearer in the Authorization header

package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
)

// LoginRequest is the JSON request body for POST /login
type LoginRequest struct {
	Email string `json:"email"`
}

// AuthenticateRequest is the JSON request body for POST /authenticate
type AuthenticateRequest struct {
	Email      string `json:"email"`
	EmailToken string `json:"emailToken"`
}

// StatusResponse is the JSON response for GET /
type StatusResponse struct {
	Up bool `json:"up"`
}

// validEmail reports whether the address parses as a bare email
func validEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}

// handleStatus handles GET / health checks
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{Up: true})
}

// handleLogin handles POST /login. The response is an empty 200 whether
// or not the user already existed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		s.writeBadRequest(w, "email must be a valid email address")
		return
	}

	if err := s.auth.Login(r.Context(), req.Email); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleAuthenticate handles POST /authenticate. On success the signed
// bearer credential is carried in the Authorization response header.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if !validEmail(req.Email) {
		s.writeBadRequest(w, "email must be a valid email address")
		return
	}
	if req.EmailToken == "" {
		s.writeBadRequest(w, "emailToken is required")
		return
	}

	bearer, err := s.auth.Authenticate(r.Context(), req.Email, req.EmailToken)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Authorization", bearer)
	w.WriteHeader(http.StatusOK)
}
