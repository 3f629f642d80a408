// ABOUTME: Course and enrollment store methods for membership and roles
// ABOUTME: TeacherCourseIDs backs the authorization gate's teacherOf lookup

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateCourse inserts a new course and assigns its ID
func (s *SQLiteStore) CreateCourse(ctx context.Context, course *Course) error {
	now := time.Now()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	query := `
		INSERT INTO courses (name, course_details, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		course.Name,
		course.CourseDetails,
		formatTime(course.CreatedAt),
		formatTime(course.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading course id: %w", err)
	}
	course.ID = id

	return nil
}

// GetCourse retrieves a course by ID
func (s *SQLiteStore) GetCourse(ctx context.Context, id int64) (*Course, error) {
	query := `SELECT id, name, course_details, created_at, updated_at FROM courses WHERE id = ?`

	var c Course
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CourseDetails, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning course: %w", err)
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

// ListCourses returns all courses ordered by ID
func (s *SQLiteStore) ListCourses(ctx context.Context) ([]*Course, error) {
	query := `SELECT id, name, course_details, created_at, updated_at FROM courses ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		var c Course
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.CourseDetails, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}

	return courses, rows.Err()
}

// UpdateCourse updates a course's name and details
func (s *SQLiteStore) UpdateCourse(ctx context.Context, course *Course) error {
	course.UpdatedAt = time.Now()

	query := `UPDATE courses SET name = ?, course_details = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		course.Name,
		course.CourseDetails,
		formatTime(course.UpdatedAt),
		course.ID,
	)
	if err != nil {
		return fmt.Errorf("updating course: %w", err)
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

// DeleteCourse removes a course; enrollments, tests and results cascade
func (s *SQLiteStore) DeleteCourse(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
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

// UpsertEnrollment adds a user to a course or updates their role.
// Idempotent for repeated enrollments with the same role.
func (s *SQLiteStore) UpsertEnrollment(ctx context.Context, enrollment *Enrollment) error {
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO course_enrollments (user_id, course_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, course_id) DO UPDATE SET role = excluded.role
	`
	_, err := s.db.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Role,
		formatTime(enrollment.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting enrollment: %w", err)
	}

	s.logger.Debug("upserted enrollment", "user_id", enrollment.UserID, "course_id", enrollment.CourseID, "role", enrollment.Role)
	return nil
}

// ListCourseMembers returns all enrollments for a course
func (s *SQLiteStore) ListCourseMembers(ctx context.Context, courseID int64) ([]*Enrollment, error) {
	query := `
		SELECT user_id, course_id, role, created_at
		FROM course_enrollments WHERE course_id = ? ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing course members: %w", err)
	}
	defer rows.Close()

	var members []*Enrollment
	for rows.Next() {
		var e Enrollment
		var createdAt string
		if err := rows.Scan(&e.UserID, &e.CourseID, &e.Role, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning enrollment: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		members = append(members, &e)
	}

	return members, rows.Err()
}

// DeleteEnrollment removes a user from a course
func (s *SQLiteStore) DeleteEnrollment(ctx context.Context, courseID, userID int64) error {
	query := `DELETE FROM course_enrollments WHERE course_id = ? AND user_id = ?`

	res, err := s.db.ExecContext(ctx, query, courseID, userID)
	if err != nil {
		return fmt.Errorf("deleting enrollment: %w", err)
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

// TeacherCourseIDs returns the IDs of courses where the user holds a
// TEACHER enrollment. Computed fresh on every call so role changes take
// effect on the next request.
func (s *SQLiteStore) TeacherCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT course_id FROM course_enrollments
		WHERE user_id = ? AND role = 'TEACHER'
		ORDER BY course_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing teacher courses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning course id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
