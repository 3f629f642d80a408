// ABOUTME: Principal type and context propagation for authenticated requests
// ABOUTME: Provides WithPrincipal/FromContext for handlers downstream of the gate

package auth

import (
	"context"
	"slices"
)

// Principal is the resolved identity attached to an authenticated request.
// It is derived fresh from the session token on every request and is never
// persisted, so role changes take effect on the next call.
type Principal struct {
	TokenID   int64
	UserID    int64
	IsAdmin   bool
	TeacherOf []int64 // course IDs where the user holds a TEACHER role
}

// IsTeacherOf returns true if the principal teaches the given course
func (p *Principal) IsTeacherOf(courseID int64) bool {
	return slices.Contains(p.TeacherOf, courseID)
}

// principalKey is the key type for storing a Principal in context.Context
type principalKey struct{}

// WithPrincipal returns a new context with the Principal attached
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not present
func FromContext(ctx context.Context) *Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the Principal from the context, panicking if not present
func MustFromContext(ctx context.Context) *Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}
