// ABOUTME: Test and test-result store methods for the grading workflow
// ABOUTME: Results link a student, a grader and a test with a numeric score

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateTest inserts a new test and assigns its ID
func (s *SQLiteStore) CreateTest(ctx context.Context, test *Test) error {
	now := time.Now()
	if test.CreatedAt.IsZero() {
		test.CreatedAt = now
	}
	test.UpdatedAt = now

	query := `
		INSERT INTO tests (name, date, course_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		test.Name,
		formatTime(test.Date),
		test.CourseID,
		formatTime(test.CreatedAt),
		formatTime(test.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting test: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading test id: %w", err)
	}
	test.ID = id

	return nil
}

// GetTest retrieves a test by ID
func (s *SQLiteStore) GetTest(ctx context.Context, id int64) (*Test, error) {
	query := `SELECT id, name, date, course_id, created_at, updated_at FROM tests WHERE id = ?`

	var t Test
	var date, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &date, &t.CourseID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning test: %w", err)
	}

	if t.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &t, nil
}

// ListCourseTests returns all tests for a course ordered by date
func (s *SQLiteStore) ListCourseTests(ctx context.Context, courseID int64) ([]*Test, error) {
	query := `
		SELECT id, name, date, course_id, created_at, updated_at
		FROM tests WHERE course_id = ? ORDER BY date
	`
	rows, err := s.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing course tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		var t Test
		var date, createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Name, &date, &t.CourseID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning test: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, &t)
	}

	return tests, rows.Err()
}

// UpdateTest updates a test's name and date
func (s *SQLiteStore) UpdateTest(ctx context.Context, test *Test) error {
	test.UpdatedAt = time.Now()

	query := `UPDATE tests SET name = ?, date = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		test.Name,
		formatTime(test.Date),
		formatTime(test.UpdatedAt),
		test.ID,
	)
	if err != nil {
		return fmt.Errorf("updating test: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTest removes a test; results cascade
func (s *SQLiteStore) DeleteTest(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting test: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// CreateTestResult inserts a new test result and assigns its ID
func (s *SQLiteStore) CreateTestResult(ctx context.Context, result *TestResult) error {
	now := time.Now()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	query := `
		INSERT INTO test_results (result, student_id, grader_id, test_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		result.Result,
		result.StudentID,
		result.GraderID,
		result.TestID,
		formatTime(result.CreatedAt),
		formatTime(result.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting test result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading test result id: %w", err)
	}
	result.ID = id

	return nil
}

// GetTestResult retrieves a test result by ID
func (s *SQLiteStore) GetTestResult(ctx context.Context, id int64) (*TestResult, error) {
	query := `
		SELECT id, result, student_id, grader_id, test_id, created_at, updated_at
		FROM test_results WHERE id = ?
	`
	var r TestResult
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Result, &r.StudentID, &r.GraderID, &r.TestID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning test result: %w", err)
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

// ListTestResults returns all results for a test
func (s *SQLiteStore) ListTestResults(ctx context.Context, testID int64) ([]*TestResult, error) {
	return s.listResults(ctx, `test_id`, testID)
}

// ListUserTestResults returns all results belonging to a student
func (s *SQLiteStore) ListUserTestResults(ctx context.Context, userID int64) ([]*TestResult, error) {
	return s.listResults(ctx, `student_id`, userID)
}

// listResults queries test results filtered on one indexed column
func (s *SQLiteStore) listResults(ctx context.Context, column string, id int64) ([]*TestResult, error) {
	query := fmt.Sprintf(`
		SELECT id, result, student_id, grader_id, test_id, created_at, updated_at
		FROM test_results WHERE %s = ? ORDER BY id
	`, column)

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing test results: %w", err)
	}
	defer rows.Close()

	var results []*TestResult
	for rows.Next() {
		var r TestResult
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.Result, &r.StudentID, &r.GraderID, &r.TestID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning test result: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}

	return results, rows.Err()
}

// UpdateTestResult updates a result's score
func (s *SQLiteStore) UpdateTestResult(ctx context.Context, result *TestResult) error {
	result.UpdatedAt = time.Now()

	query := `UPDATE test_results SET result = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, result.Result, formatTime(result.UpdatedAt), result.ID)
	if err != nil {
		return fmt.Errorf("updating test result: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTestResult removes a test result
func (s *SQLiteStore) DeleteTestResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM test_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting test result: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
