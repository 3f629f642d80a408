// ABOUTME: Tests for the HTTP bearer authentication middleware
// ABOUTME: Covers header extraction, rejection responses and principal injection

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   string
	}{
		{
			name:    "missing header",
			header:  "",
			wantErr: "missing authorization header",
		},
		{
			name:      "bare token",
			header:    "abc.def.ghi",
			wantToken: "abc.def.ghi",
		},
		{
			name:      "bearer prefix",
			header:    "Bearer abc.def.ghi",
			wantToken: "abc.def.ghi",
		},
		{
			name:    "empty after prefix",
			header:  "Bearer ",
			wantErr: "empty token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, errMsg := extractBearerToken(tt.header)
			if token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
			if errMsg != tt.wantErr {
				t.Errorf("errMsg = %q, want %q", errMsg, tt.wantErr)
			}
		})
	}
}

func TestMiddleware_RejectsMissingHeader(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})

	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddleware_RejectsBadToken(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})

	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	req.Header.Set("Authorization", "not-a-valid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddleware_AttachesPrincipal(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})

	user, session, bearer := seedSession(t, st, svc, "a@x.com")

	var got *Principal
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil {
		t.Fatal("principal missing from request context")
	}
	if got.UserID != user.ID || got.TokenID != session.ID {
		t.Errorf("principal = %+v, want user %d token %d", got, user.ID, session.ID)
	}
}
