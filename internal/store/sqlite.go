// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides schema bootstrap plus the token persistence methods

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			email      TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name  TEXT NOT NULL DEFAULT '',
			social     TEXT NOT NULL DEFAULT '{}',
			is_admin   INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tokens (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			kind           TEXT NOT NULL,
			challenge_code TEXT,
			valid          INTEGER NOT NULL DEFAULT 1,
			expires_at     TEXT NOT NULL,
			user_id        INTEGER NOT NULL,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			CHECK (kind IN ('EMAIL', 'API'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_challenge_code
			ON tokens(challenge_code) WHERE challenge_code IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON tokens(user_id);

		CREATE TABLE IF NOT EXISTS courses (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL,
			course_details TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS course_enrollments (
			user_id    INTEGER NOT NULL,
			course_id  INTEGER NOT NULL,
			role       TEXT NOT NULL,
			created_at TEXT NOT NULL,

			PRIMARY KEY (user_id, course_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE,
			CHECK (role IN ('STUDENT', 'TEACHER'))
		);

		CREATE INDEX IF NOT EXISTS idx_enrollments_course ON course_enrollments(course_id);

		CREATE TABLE IF NOT EXISTS tests (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			date       TEXT NOT NULL,
			course_id  INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_tests_course ON tests(course_id);

		CREATE TABLE IF NOT EXISTS test_results (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			result     INTEGER NOT NULL,
			student_id INTEGER NOT NULL,
			grader_id  INTEGER NOT NULL,
			test_id    INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			FOREIGN KEY (student_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (grader_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (test_id) REFERENCES tests(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_test_results_test ON test_results(test_id);
		CREATE INDEX IF NOT EXISTS idx_test_results_student ON test_results(student_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// Close releases the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime converts a time to its canonical stored representation
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime converts a stored timestamp back to a time.Time
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// CreateToken inserts a new token and assigns its ID
func (s *SQLiteStore) CreateToken(ctx context.Context, token *Token) error {
	now := time.Now()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	var code sql.NullString
	if token.ChallengeCode != "" {
		code = sql.NullString{String: token.ChallengeCode, Valid: true}
	}

	query := `
		INSERT INTO tokens (kind, challenge_code, valid, expires_at, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		token.Kind,
		code,
		token.Valid,
		formatTime(token.ExpiresAt),
		token.UserID,
		formatTime(token.CreatedAt),
		formatTime(token.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateChallengeCode
		}
		return fmt.Errorf("inserting token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading token id: %w", err)
	}
	token.ID = id

	s.logger.Debug("created token", "token_id", id, "kind", token.Kind, "user_id", token.UserID)
	return nil
}

// GetToken retrieves a token by its ID
func (s *SQLiteStore) GetToken(ctx context.Context, id int64) (*Token, error) {
	query := `
		SELECT id, kind, challenge_code, valid, expires_at, user_id, created_at, updated_at
		FROM tokens WHERE id = ?
	`
	return s.scanToken(s.db.QueryRowContext(ctx, query, id))
}

// GetTokenByChallengeCode retrieves an email challenge token by its code
func (s *SQLiteStore) GetTokenByChallengeCode(ctx context.Context, code string) (*Token, error) {
	query := `
		SELECT id, kind, challenge_code, valid, expires_at, user_id, created_at, updated_at
		FROM tokens WHERE challenge_code = ?
	`
	return s.scanToken(s.db.QueryRowContext(ctx, query, code))
}

// scanToken reads a single token row
func (s *SQLiteStore) scanToken(row *sql.Row) (*Token, error) {
	var t Token
	var code sql.NullString
	var expiresAt, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Kind, &code, &t.Valid, &expiresAt, &t.UserID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning token: %w", err)
	}

	t.ChallengeCode = code.String
	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
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

// SetTokenValidity updates a token's valid flag
func (s *SQLiteStore) SetTokenValidity(ctx context.Context, id int64, valid bool) error {
	query := `UPDATE tokens SET valid = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, valid, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating token validity: %w", err)
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

// RedeemChallenge creates the session token and invalidates the challenge
// atomically. If either write fails the transaction is rolled back, so a
// challenge can never produce a session without being consumed.
func (s *SQLiteStore) RedeemChallenge(ctx context.Context, challengeID int64, session *Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning redemption: %w", err)
	}
	defer tx.Rollback()

	// Invalidate first, and only if the challenge is still valid. The
	// guarded UPDATE makes concurrent redemptions of the same code lose.
	res, err := tx.ExecContext(ctx,
		`UPDATE tokens SET valid = 0, updated_at = ? WHERE id = ? AND valid = 1`,
		formatTime(time.Now()), challengeID,
	)
	if err != nil {
		return fmt.Errorf("invalidating challenge: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking challenge invalidation: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (kind, challenge_code, valid, expires_at, user_id, created_at, updated_at)
		 VALUES (?, NULL, ?, ?, ?, ?, ?)`,
		session.Kind,
		session.Valid,
		formatTime(session.ExpiresAt),
		session.UserID,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session token: %w", err)
	}

	id, err := insert.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading session token id: %w", err)
	}
	session.ID = id

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing redemption: %w", err)
	}

	s.logger.Debug("redeemed challenge", "challenge_id", challengeID, "session_id", id, "user_id", session.UserID)
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
