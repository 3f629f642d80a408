// ABOUTME: Store interface and data types for coursebook persistence
// ABOUTME: Defines User, Token, Course, Test structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateChallengeCode is returned when a challenge code collides
// with an existing one
var ErrDuplicateChallengeCode = errors.New("challenge code already exists")

// TokenKind constants for token kinds
const (
	TokenKindEmail = "EMAIL" // Short-lived email challenge
	TokenKindAPI   = "API"   // Longer-lived API session
)

// Token represents either an email challenge or an API session.
// Email challenges carry a ChallengeCode; API sessions do not.
type Token struct {
	ID            int64
	Kind          string // "EMAIL" or "API"
	ChallengeCode string // empty for API tokens
	Valid         bool
	ExpiresAt     time.Time
	UserID        int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User represents an account. Users are created implicitly on first
// login and can be completed later via the users API.
type User struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Social    string // JSON blob of social links
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnrollmentRole constants for course enrollment roles
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
)

// Course represents a course that users enroll in
type Course struct {
	ID            int64
	Name          string
	CourseDetails string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Enrollment represents a user's membership in a course with a role
type Enrollment struct {
	UserID    int64
	CourseID  int64
	Role      string // "STUDENT" or "TEACHER"
	CreatedAt time.Time
}

// Test represents a test belonging to a course
type Test struct {
	ID        int64
	Name      string
	Date      time.Time
	CourseID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TestResult represents a graded result of a test for a student
type TestResult struct {
	ID        int64
	Result    int64 // percentage score out of 100
	StudentID int64
	GraderID  int64
	TestID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for coursebook persistence
type Store interface {
	// Tokens
	CreateToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, id int64) (*Token, error)
	GetTokenByChallengeCode(ctx context.Context, code string) (*Token, error)
	SetTokenValidity(ctx context.Context, id int64, valid bool) error
	// RedeemChallenge creates the session token and invalidates the
	// challenge in one transaction. On error neither write is applied.
	RedeemChallenge(ctx context.Context, challengeID int64, session *Token) error

	// Users
	UpsertUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	ListUsers(ctx context.Context) ([]*User, error)
	// DeleteUser removes the user and all owned tokens, enrollments and
	// test results in one transaction.
	DeleteUser(ctx context.Context, id int64) error

	// Courses
	CreateCourse(ctx context.Context, course *Course) error
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListCourses(ctx context.Context) ([]*Course, error)
	UpdateCourse(ctx context.Context, course *Course) error
	DeleteCourse(ctx context.Context, id int64) error

	// Enrollments
	UpsertEnrollment(ctx context.Context, enrollment *Enrollment) error
	ListCourseMembers(ctx context.Context, courseID int64) ([]*Enrollment, error)
	DeleteEnrollment(ctx context.Context, courseID, userID int64) error
	TeacherCourseIDs(ctx context.Context, userID int64) ([]int64, error)

	// Tests
	CreateTest(ctx context.Context, test *Test) error
	GetTest(ctx context.Context, id int64) (*Test, error)
	ListCourseTests(ctx context.Context, courseID int64) ([]*Test, error)
	UpdateTest(ctx context.Context, test *Test) error
	DeleteTest(ctx context.Context, id int64) error

	// Test results
	CreateTestResult(ctx context.Context, result *TestResult) error
	GetTestResult(ctx context.Context, id int64) (*TestResult, error)
	ListTestResults(ctx context.Context, testID int64) ([]*TestResult, error)
	ListUserTestResults(ctx context.Context, userID int64) ([]*TestResult, error)
	UpdateTestResult(ctx context.Context, result *TestResult) error
	DeleteTestResult(ctx context.Context, id int64) error

	// Close releases any resources held by the store
	Close() error
}
