// ABOUTME: Test and test-result handlers; grading requires teaching the course
// ABOUTME: Students read their own results via the self-or-admin check

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coursebook/coursebook/internal/auth"
	"github.com/coursebook/coursebook/internal/store"
)

// TestInput is the JSON request body for creating or updating a test
type TestInput struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// TestResponse is the JSON shape of a test
type TestResponse struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	CourseID int64     `json:"courseId"`
}

// TestResultInput is the JSON request body for recording a result
type TestResultInput struct {
	Result    int64 `json:"result"`
	StudentID int64 `json:"studentId"`
}

// TestResultResponse is the JSON shape of a test result
type TestResultResponse struct {
	ID        int64 `json:"id"`
	Result    int64 `json:"result"`
	StudentID int64 `json:"studentId"`
	GraderID  int64 `json:"graderId"`
	TestID    int64 `json:"testId"`
}

func testResponse(t *store.Test) TestResponse {
	return TestResponse{ID: t.ID, Name: t.Name, Date: t.Date, CourseID: t.CourseID}
}

func testResultResponse(r *store.TestResult) TestResultResponse {
	return TestResultResponse{ID: r.ID, Result: r.Result, StudentID: r.StudentID, GraderID: r.GraderID, TestID: r.TestID}
}

// handleListCourseTests handles GET /courses/{courseId}/tests
func (s *Server) handleListCourseTests(w http.ResponseWriter, r *http.Request) {
	courseID := pathID(r, "courseId")
	if courseID == 0 {
		s.writeBadRequest(w, "courseId must be a positive integer")
		return
	}

	tests, err := s.store.ListCourseTests(r.Context(), courseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]TestResponse, 0, len(tests))
	for _, t := range tests {
		resp = append(resp, testResponse(t))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateTest handles POST /courses/{courseId}/tests (teacher or admin)
func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
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

	var input TestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.Name == "" {
		s.writeBadRequest(w, "name is required")
		return
	}
	if input.Date.IsZero() {
		s.writeBadRequest(w, "date is required")
		return
	}

	// The course must exist before tests hang off it
	if _, err := s.store.GetCourse(r.Context(), courseID); err != nil {
		s.writeError(w, err)
		return
	}

	test := &store.Test{Name: input.Name, Date: input.Date, CourseID: courseID}
	if err := s.store.CreateTest(r.Context(), test); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, testResponse(test))
}

// handleUpdateTest handles PUT /tests/{testId} (teacher of the course or admin)
func (s *Server) handleUpdateTest(w http.ResponseWriter, r *http.Request) {
	testID := pathID(r, "testId")
	if testID == 0 {
		s.writeBadRequest(w, "testId must be a positive integer")
		return
	}

	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input TestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	if input.Name != "" {
		test.Name = input.Name
	}
	if !input.Date.IsZero() {
		test.Date = input.Date
	}

	if err := s.store.UpdateTest(r.Context(), test); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, testResponse(test))
}

// handleDeleteTest handles DELETE /tests/{testId} (teacher of the course or admin)
func (s *Server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	testID := pathID(r, "testId")
	if testID == 0 {
		s.writeBadRequest(w, "testId must be a positive integer")
		return
	}

	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteTest(r.Context(), testID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListTestResults handles GET /tests/{testId}/results (teacher or admin)
func (s *Server) handleListTestResults(w http.ResponseWriter, r *http.Request) {
	testID := pathID(r, "testId")
	if testID == 0 {
		s.writeBadRequest(w, "testId must be a positive integer")
		return
	}

	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.store.ListTestResults(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]TestResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, testResultResponse(res))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateTestResult handles POST /tests/{testId}/results. The grader
// is the authenticated principal and must teach the course (or be admin).
func (s *Server) handleCreateTestResult(w http.ResponseWriter, r *http.Request) {
	testID := pathID(r, "testId")
	if testID == 0 {
		s.writeBadRequest(w, "testId must be a positive integer")
		return
	}

	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input TestResultInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.StudentID <= 0 {
		s.writeBadRequest(w, "studentId must be a positive integer")
		return
	}
	if input.Result < 0 || input.Result > 100 {
		s.writeBadRequest(w, "result must be between 0 and 100")
		return
	}

	result := &store.TestResult{
		Result:    input.Result,
		StudentID: input.StudentID,
		GraderID:  principal.UserID,
		TestID:    testID,
	}
	if err := s.store.CreateTestResult(r.Context(), result); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, testResultResponse(result))
}

// handleListUserTestResults handles GET /users/{userId}/test-results (self or admin)
func (s *Server) handleListUserTestResults(w http.ResponseWriter, r *http.Request) {
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

	results, err := s.store.ListUserTestResults(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]TestResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, testResultResponse(res))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleUpdateTestResult handles PUT /test-results/{resultId} (teacher of the course or admin)
func (s *Server) handleUpdateTestResult(w http.ResponseWriter, r *http.Request) {
	resultID := pathID(r, "resultId")
	if resultID == 0 {
		s.writeBadRequest(w, "resultId must be a positive integer")
		return
	}

	result, err := s.store.GetTestResult(r.Context(), resultID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	test, err := s.store.GetTest(r.Context(), result.TestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	var input TestResultInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if input.Result < 0 || input.Result > 100 {
		s.writeBadRequest(w, "result must be between 0 and 100")
		return
	}

	result.Result = input.Result
	if err := s.store.UpdateTestResult(r.Context(), result); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, testResultResponse(result))
}

// handleDeleteTestResult handles DELETE /test-results/{resultId} (teacher of the course or admin)
func (s *Server) handleDeleteTestResult(w http.ResponseWriter, r *http.Request) {
	resultID := pathID(r, "resultId")
	if resultID == 0 {
		s.writeBadRequest(w, "resultId must be a positive integer")
		return
	}

	result, err := s.store.GetTestResult(r.Context(), resultID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	test, err := s.store.GetTest(r.Context(), result.TestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	principal := auth.MustFromContext(r.Context())
	if err := auth.RequireTeacherOrAdmin(test.CourseID, principal); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteTestResult(r.Context(), resultID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
