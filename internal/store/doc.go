// Package store provides persistent storage for coursebook using SQLite.
//
// # Data Models
//
//   - User: Account anchored to a unique email; created implicitly on
//     first login
//   - Token: Either an EMAIL challenge (short-lived, carries an 8-digit
//     challenge code) or an API session
//   - Course: A course with enrollments
//   - Enrollment: Course membership with a STUDENT or TEACHER role
//   - Test / TestResult: Tests per course and graded results per student
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") for tests.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateChallengeCode: Challenge code collides with a stored one
//
// All methods accept context.Context for cancellation support.
//
// # Atomicity
//
// Two operations span multiple writes and run inside a transaction:
// RedeemChallenge (create session + invalidate challenge) and DeleteUser
// (cascading cleanup of tokens, enrollments and results).
package store
