// ABOUTME: Authorization gate resolving bearer credentials to principals
// ABOUTME: Fail-closed: store errors degrade to unauthorized, detail goes to the log

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/coursebook/coursebook/internal/store"
)

// Authorize resolves a bearer credential to a Principal. Every failure
// maps to ErrUnauthorized: bad signatures, malformed ids, missing or
// invalidated tokens, expiry, and even store errors. The reason is logged
// but never surfaced to the caller.
func (s *Service) Authorize(ctx context.Context, bearer string) (*Principal, error) {
	tokenID, err := s.signer.Verify(bearer)
	if err != nil {
		s.logger.Warn("authorize rejected credential", "error", err)
		return nil, ErrUnauthorized
	}

	if tokenID <= 0 {
		s.logger.Error("authorize rejected credential", "reason", "non-positive token id", "token_id", tokenID)
		return nil, ErrUnauthorized
	}

	token, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("authorize rejected credential", "token_id", tokenID, "reason", "Invalid token")
		} else {
			s.logger.Error("authorize store failure", "token_id", tokenID, "reason", "DB Error", "error", err)
		}
		return nil, ErrUnauthorized
	}

	if !token.Valid {
		s.logger.Warn("authorize rejected credential", "token_id", tokenID, "reason", "Invalid token")
		return nil, ErrUnauthorized
	}

	// Expired tokens are rejected at read time only; nothing is deleted
	// or mutated here.
	if token.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("authorize rejected credential", "token_id", tokenID, "reason", "Token Expired")
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUser(ctx, token.UserID)
	if err != nil {
		s.logger.Error("authorize store failure", "token_id", tokenID, "reason", "DB Error", "error", err)
		return nil, ErrUnauthorized
	}

	teacherOf, err := s.store.TeacherCourseIDs(ctx, user.ID)
	if err != nil {
		s.logger.Error("authorize store failure", "token_id", tokenID, "reason", "DB Error", "error", err)
		return nil, ErrUnauthorized
	}

	return &Principal{
		TokenID:   token.ID,
		UserID:    user.ID,
		IsAdmin:   user.IsAdmin,
		TeacherOf: teacherOf,
	}, nil
}

// RequireSelfOrAdmin grants access when the principal is an admin or is
// the requested user. Pure function of already-resolved state.
func RequireSelfOrAdmin(requestedUserID int64, p *Principal) error {
	if p == nil {
		return ErrUnauthorized
	}
	if p.IsAdmin || p.UserID == requestedUserID {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin grants access only to admins
func RequireAdmin(p *Principal) error {
	if p == nil {
		return ErrUnauthorized
	}
	if !p.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireTeacherOrAdmin grants access when the principal teaches the
// given course or is an admin
func RequireTeacherOrAdmin(courseID int64, p *Principal) error {
	if p == nil {
		return ErrUnauthorized
	}
	if p.IsAdmin || p.IsTeacherOf(courseID) {
		return nil
	}
	return ErrForbidden
}
