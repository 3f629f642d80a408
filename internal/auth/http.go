// ABOUTME: HTTP middleware for bearer authentication on API endpoints
// ABOUTME: Extracts the credential from the Authorization header and attaches the Principal

package auth

import (
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer credential from the Authorization
// header. A "Bearer " prefix is accepted but not required, matching the
// wire format of the authenticate response, which returns the bare token.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware creates an HTTP middleware that authorizes every request
// through the gate and attaches the resolved Principal to the request
// context using the same WithPrincipal/FromContext pattern handlers use.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			principal, err := svc.Authorize(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
