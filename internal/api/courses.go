// ABOUTME: Course and enrollment handlers; mutation requires a teaching role
// ABOUTME: The creating user is enrolled as the course's first teacher

package api

import (
	"encoding/json"
	"net/http"

	"github.com/coursebook/coursebook/internal/auth"
	"github.com/coursebook/coursebook/internal/store"
)

// CourseInput is the JSON request body for creating or updating a course
type CourseInput struct {
	Name          string `json:"name"`
	CourseDetails string `json:"courseDetails"`
}

// CourseResponse is the JSON shape of a course
type CourseResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseDetails string `json:"courseDetails"`
}

// EnrollmentInput is the JSON request body for POST /courses/{courseId}/members
type EnrollmentInput struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// EnrollmentResponse is the JSON shape of a course membership
type EnrollmentResponse struct {
	UserID   int64  `json:"userId"`
	CourseID int64  `json:"courseId"`
	Role     string `json:"role"`
}

func courseResponse(c *store.Course) CourseResponse {
	return CourseResponse{ID: c.ID, Name: c.Name, CourseDetails: c.CourseDetails}
}

// handleListCourses handles GET /courses (any authenticated user)
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCourses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, courseResponse(c))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetCourse handles GET /courses/{courseId} (any authenticated user)
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	course, err := s.store.GetCourse(r.Context(), courseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, courseResponse(course))
}

// handleCreateCourse handles POST /courses. Any authenticated user can
// create a course and becomes its first teacher.
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var input CourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.Name == "" {
		s.writeBadRequest(w, "name is required")
		return
	}

	course := &store.Course{Name: input.Name, CourseDetails: input.CourseDetails}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		s.writeError(w, err)
		return
	}

	enrollment := &store.Enrollment{
		UserID:   principal.UserID,
		CourseID: course.ID,
		Role:     store.RoleTeacher,
	}
	if err := s.store.UpsertEnrollment(r.Context(), enrollment); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, courseResponse(course))
}

// handleUpdateCourse handles PUT /courses/{courseId} (teacher of course or admin)
func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(courseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input CourseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	course, err := s.store.GetCourse(r.Context(), courseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if input.Name != "" {
		course.Name = input.Name
	}
	if input.CourseDetails != "" {
		course.CourseDetails = input.CourseDetails
	}

	if err := s.store.UpdateCourse(r.Context(), course); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, courseResponse(course))
}

// handleDeleteCourse handles DELETE /courses/{courseId} (teacher of course or admin)
func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(courseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteCourse(r.Context(), courseID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListCourseMembers handles GET /courses/{courseId}/members
func (s *Server) handleListCourseMembers(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	members, err := s.store.ListCourseMembers(r.Context(), courseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]EnrollmentResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, EnrollmentResponse{UserID: m.UserID, CourseID: m.CourseID, Role: m.Role})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleEnrollMember handles POST /courses/{courseId}/members (teacher or admin)
func (s *Server) handleEnrollMember(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(courseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input EnrollmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.UserID <= 0 {
		s.writeBadRequest(w, "userId must be a positive integer")
		return
	}
	if input.Role != store.RoleStudent && input.Role != store.RoleTeacher {
		s.writeBadRequest(w, "role must be STUDENT or TEACHER")
		return
	}

	enrollment := &store.Enrollment{UserID: input.UserID, CourseID: courseID, Role: input.Role}
	if err := s.store.UpsertEnrollment(r.Context(), enrollment); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, EnrollmentResponse{UserID: input.UserID, CourseID: courseID, Role: input.Role})
}

// handleRemoveMember handles DELETE /courses/{courseId}/members/{userId} (teacher or admin)
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	userID := pathID(r, "userId")
	if courseID == 0 || userID == 0 {
		s.writeBadRequest(w, "courseId and userId must be positive integers")
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(courseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteEnrollment(r.Context(), courseID, userID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
