// ABOUTME: Two-phase passwordless login flow: email challenge then redemption
// ABOUTME: Challenges live 10 minutes, redeemed sessions live 12 hours

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coursebook/coursebook/internal/store"
)

// Flow errors returned across the authentication boundary. Internal
// detail never rides on these; it goes to the log.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal failure")
)

// Token lifetimes, fixed by the protocol
const (
	challengeLifetime = 10 * time.Minute
	sessionLifetime   = 12 * time.Hour
)

// codeRetries bounds regeneration when a challenge code collides
const codeRetries = 3

// TokenStore defines the persistence operations the auth flow needs
type TokenStore interface {
	CreateToken(ctx context.Context, token *store.Token) error
	GetToken(ctx context.Context, id int64) (*store.Token, error)
	GetTokenByChallengeCode(ctx context.Context, code string) (*store.Token, error)
	RedeemChallenge(ctx context.Context, challengeID int64, session *store.Token) error
	UpsertUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	TeacherCourseIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Mailer delivers a challenge code to a user out-of-band
type Mailer interface {
	SendChallengeCode(ctx context.Context, email, code string) error
}

// Service implements the authentication flow and authorization gate
type Service struct {
	store  TokenStore
	mailer Mailer
	signer *TokenSigner
	logger *slog.Logger
}

// NewService creates an auth service with its collaborators injected
func NewService(tokens TokenStore, mailer Mailer, signer *TokenSigner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  tokens,
		mailer: mailer,
		signer: signer,
		logger: logger.With("component", "auth"),
	}
}

// Login starts a login attempt for the given email address. The user is
// created if absent, an email challenge token is stored, and the code is
// dispatched to the mailer. The response is identical whether or not the
// user already existed.
func (s *Service) Login(ctx context.Context, email string) error {
	user, err := s.store.UpsertUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("login failed to upsert user", "error", err)
		return ErrInternal
	}

	var token *store.Token
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := GenerateChallengeCode()
		if err != nil {
			s.logger.Error("login failed to generate code", "error", err)
			return ErrInternal
		}

		token = &store.Token{
			Kind:          store.TokenKindEmail,
			ChallengeCode: code,
			Valid:         true,
			ExpiresAt:     time.Now().Add(challengeLifetime),
			UserID:        user.ID,
		}

		err = s.store.CreateToken(ctx, token)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicateChallengeCode) {
			token = nil
			continue
		}
		s.logger.Error("login failed to create challenge", "error", err)
		return ErrInternal
	}
	if token == nil {
		s.logger.Error("login exhausted challenge code retries")
		return ErrInternal
	}

	if err := s.mailer.SendChallengeCode(ctx, email, token.ChallengeCode); err != nil {
		s.logger.Error("login failed to send challenge", "error", err)
		return ErrInternal
	}

	s.logger.Info("issued login challenge", "user_id", user.ID)
	return nil
}

// Authenticate redeems an email challenge for a bearer credential.
// Redemption is single-use: the challenge is invalidated in the same
// transaction that creates the session, so a second call with the same
// code fails. A challenge whose owner's email does not match the supplied
// one (case-sensitive) is rejected outright.
func (s *Service) Authenticate(ctx context.Context, email, challengeCode string) (string, error) {
	challenge, err := s.store.GetTokenByChallengeCode(ctx, challengeCode)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("authenticate failed to fetch challenge", "error", err)
		}
		return "", ErrUnauthorized
	}

	if !challenge.Valid {
		s.logger.Warn("authenticate rejected spent challenge", "token_id", challenge.ID)
		return "", ErrUnauthorized
	}

	if challenge.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("authenticate rejected challenge", "token_id", challenge.ID, "reason", "token expired")
		return "", ErrUnauthorized
	}

	owner, err := s.store.GetUser(ctx, challenge.UserID)
	if err != nil {
		s.logger.Error("authenticate failed to fetch owner", "error", err)
		return "", ErrUnauthorized
	}
	if owner.Email != email {
		s.logger.Warn("authenticate rejected challenge", "token_id", challenge.ID, "reason", "email mismatch")
		return "", ErrUnauthorized
	}

	session := &store.Token{
		Kind:      store.TokenKindAPI,
		Valid:     true,
		ExpiresAt: time.Now().Add(sessionLifetime),
		UserID:    owner.ID,
	}
	if err := s.store.RedeemChallenge(ctx, challenge.ID, session); err != nil {
		// ErrNotFound here means the guarded invalidation lost a race
		// with another redemption of the same code.
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnauthorized
		}
		s.logger.Error("authenticate failed to redeem challenge", "error", err)
		return "", ErrInternal
	}

	bearer, err := s.signer.Sign(session.ID)
	if err != nil {
		s.logger.Error("authenticate failed to sign session", "error", err)
		return "", ErrInternal
	}

	s.logger.Info("authenticated user", "user_id", owner.ID, "session_id", session.ID)
	return bearer, nil
}
