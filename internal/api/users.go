// ABOUTME: User CRUD handlers guarded by self-or-admin access checks
// ABOUTME: Deleting a user cascades tokens, enrollments and results

package api

import (
	"encoding/json"
	"net/http"

	"github.com/coursebook/coursebook/internal/auth"
	"github.com/coursebook/coursebook/internal/store"
)

// UserInput is the JSON request body for creating or updating a user
type UserInput struct {
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Social    json.RawMessage `json:"social,omitempty"`
}

// UserResponse is the JSON shape of a user
type UserResponse struct {
	ID        int64           `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Social    json.RawMessage `json:"social"`
	IsAdmin   bool            `json:"isAdmin"`
}

func userResponse(u *store.User) UserResponse {
	social := u.Social
	if social == "" {
		social = "{}"
	}
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Social:    json.RawMessage(social),
		IsAdmin:   u.IsAdmin,
	}
}

// handleListUsers handles GET /users (admin only)
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireAdmin(principal); err != nil {
		s.writeError(w, err)
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateUser handles POST /users (admin only)
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireAdmin(principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.FirstName == "" || input.LastName == "" {
		s.writeBadRequest(w, "firstName and lastName are required")
		return
	}
	if !validEmail(input.Email) {
		s.writeBadRequest(w, "email must be a valid email address")
		return
	}

	user := &store.User{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Social:    string(input.Social),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": user.ID})
}

// handleGetUser handles GET /users/{userId} (self or admin)
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	if userID == 0 {
		s.writeBadRequest(w, "userId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireSelfOrAdmin(userID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponse(user))
}

// handleUpdateUser handles PUT /users/{userId} (self or admin).
// Only provided fields are changed.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	if userID == 0 {
		s.writeBadRequest(w, "userId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireSelfOrAdmin(userID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if input.FirstName != "" {
		user.FirstName = input.FirstName
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.Email != "" {
		if !validEmail(input.Email) {
			s.writeBadRequest(w, "email must be a valid email address")
			return
		}
		user.Email = input.Email
	}
	if len(input.Social) > 0 {
		user.Social = string(input.Social)
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponse(user))
}

// handleDeleteUser handles DELETE /users/{userId} (admin only).
// Owned tokens go with the user.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r, "userId")
	if userID == 0 {
		s.writeBadRequest(w, "userId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireAdmin(principal); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteUser(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
