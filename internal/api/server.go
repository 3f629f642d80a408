// ABOUTME: HTTP server wiring routes, auth middleware and request logging
// ABOUTME: Thin dispatch layer over the auth service and the store

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/coursebook/coursebook/internal/auth"
	"github.com/coursebook/coursebook/internal/store"
)

// Server holds the handler dependencies for the REST API
type Server struct {
	store  store.Store
	auth   *auth.Service
	logger *slog.Logger
}

// NewServer creates an API server with its collaborators injected
func NewServer(st store.Store, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		auth:   authSvc,
		logger: logger.With("component", "api"),
	}
}

// Routes builds the full route table. Login, authenticate and status are
// public; everything else sits behind the auth middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := auth.Middleware(s.auth)

	// Public routes
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /authenticate", s.handleAuthenticate)

	// Users
	mux.Handle("GET /users", authed(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("POST /users", authed(http.HandlerFunc(s.handleCreateUser)))
	mux.Handle("GET /users/{userId}", authed(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("PUT /users/{userId}", authed(http.HandlerFunc(s.handleUpdateUser)))
	mux.Handle("DELETE /users/{userId}", authed(http.HandlerFunc(s.handleDeleteUser)))
	mux.Handle("GET /users/{userId}/test-results", authed(http.HandlerFunc(s.handleListUserTestResults)))

	// Courses
	mux.Handle("GET /courses", authed(http.HandlerFunc(s.handleListCourses)))
	mux.Handle("POST /courses", authed(http.HandlerFunc(s.handleCreateCourse)))
	mux.Handle("GET /courses/{courseId}", authed(http.HandlerFunc(s.handleGetCourse)))
	mux.Handle("PUT /courses/{courseId}", authed(http.HandlerFunc(s.handleUpdateCourse)))
	mux.Handle("DELETE /courses/{courseId}", authed(http.HandlerFunc(s.handleDeleteCourse)))
	mux.Handle("GET /courses/{courseId}/members", authed(http.HandlerFunc(s.handleListCourseMembers)))
	mux.Handle("POST /courses/{courseId}/members", authed(http.HandlerFunc(s.handleEnrollMember)))
	mux.Handle("DELETE /courses/{courseId}/members/{userId}", authed(http.HandlerFunc(s.handleRemoveMember)))

	// Tests
	mux.Handle("GET /courses/{courseId}/tests", authed(http.HandlerFunc(s.handleListCourseTests)))
	mux.Handle("POST /courses/{courseId}/tests", authed(http.HandlerFunc(s.handleCreateTest)))
	mux.Handle("PUT /tests/{testId}", authed(http.HandlerFunc(s.handleUpdateTest)))
	mux.Handle("DELETE /tests/{testId}", authed(http.HandlerFunc(s.handleDeleteTest)))

	// Test results
	mux.Handle("GET /tests/{testId}/results", authed(http.HandlerFunc(s.handleListTestResults)))
	mux.Handle("POST /tests/{testId}/results", authed(http.HandlerFunc(s.handleCreateTestResult)))
	mux.Handle("PUT /test-results/{resultId}", authed(http.HandlerFunc(s.handleUpdateTestResult)))
	mux.Handle("DELETE /test-results/{resultId}", authed(http.HandlerFunc(s.handleDeleteTestResult)))

	return s.requestLogger(mux)
}

// requestLogger tags each request with an ID and logs method, path,
// status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// errorResponse is the JSON error body shape
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.logger.Error("encoding response", "error", err)
		}
	}
}

// writeError maps internal errors to HTTP responses without leaking
// internal state. Unknown errors become a generic 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, auth.ErrForbidden):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// writeBadRequest reports an input validation failure
func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// pathID parses a positive integer path parameter, returning 0 on failure
func pathID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
