// ABOUTME: User entity store methods including upsert-by-email for login
// ABOUTME: DeleteUser cascades tokens, enrollments and results in one transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertUserByEmail returns the user with the given email, creating a
// bare account first if none exists. Used by the login flow, which must
// not distinguish new users from returning ones.
func (s *SQLiteStore) UpsertUserByEmail(ctx context.Context, email string) (*User, error) {
	now := formatTime(time.Now())

	// INSERT .. ON CONFLICT keeps this a single atomic statement, so two
	// concurrent logins for the same new address cannot both insert.
	query := `
		INSERT INTO users (email, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, email, now, now); err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}

	return s.GetUserByEmail(ctx, email)
}

// CreateUser inserts a new user and assigns its ID
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Social == "" {
		user.Social = "{}"
	}

	query := `
		INSERT INTO users (email, first_name, last_name, social, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Social,
		user.IsAdmin,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	user.ID = id

	s.logger.Debug("created user", "user_id", id, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, first_name, last_name, social, is_admin, created_at, updated_at
		FROM users WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email address
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, first_name, last_name, social, is_admin, created_at, updated_at
		FROM users WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// scanUser reads a single user row
func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt, updatedAt string

	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Social, &u.IsAdmin, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &u, nil
}

// UpdateUser updates a user's profile fields
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, social = ?, is_admin = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Social,
		user.IsAdmin,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
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

// ListUsers returns all users ordered by ID
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, email, first_name, last_name, social, is_admin, created_at, updated_at
		FROM users ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Social, &u.IsAdmin, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// DeleteUser removes a user and everything the user owns. Foreign keys
// carry ON DELETE CASCADE, but the delete still runs in an explicit
// transaction so token cleanup and the user row go together.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning user delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("deleting user tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_enrollments WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("deleting user enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM test_results WHERE student_id = ? OR grader_id = ?`, id, id); err != nil {
		return fmt.Errorf("deleting user test results: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user delete: %w", err)
	}

	s.logger.Debug("deleted user", "user_id", id)
	return nil
}
