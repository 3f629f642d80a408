// ABOUTME: Credential codec for email challenge codes and signed session tokens
// ABOUTME: Uses HS256 signing with a configurable secret; payload carries only tokenId

package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
)

// challengeCodeSpan is the size of the 8-digit code space [10000000, 99999999]
const challengeCodeSpan = 90000000

// GenerateChallengeCode returns a uniformly random 8-digit decimal code.
// Uniqueness across live challenges is enforced by the store, not here.
func GenerateChallengeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(challengeCodeSpan))
	if err != nil {
		return "", fmt.Errorf("generating challenge code: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()+10000000), nil
}

// TokenSigner signs and verifies bearer credentials for API session tokens
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a signer with the given symmetric secret
func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Sign produces a signed bearer credential embedding the session token ID.
// The payload is exactly {"tokenId": id} with no issued-at claim, so the
// same ID always signs to the same credential.
func (s *TokenSigner) Sign(tokenID int64) (string, error) {
	claims := jwt.MapClaims{
		"tokenId": tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the bearer credential and extracts the session token ID.
// Tokens signed with any non-HMAC algorithm are rejected regardless of
// whether their signature would otherwise check out.
func (s *TokenSigner) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	// JSON numbers decode as float64
	raw, ok := claims["tokenId"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: missing tokenId claim", ErrInvalidToken)
	}

	return int64(raw), nil
}
