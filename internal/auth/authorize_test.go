// ABOUTME: Unit tests for the authorization gate and access-control checks
// ABOUTME: Covers principal resolution, expiry, tampering and fail-closed store errors

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursebook/coursebook/internal/store"
)

// seedSession creates a user with a valid 12h session and returns the
// user, the session and a signed bearer for it.
func seedSession(t *testing.T, st *mockStore, svc *Service, email string) (*store.User, *store.Token, string) {
	t.Helper()
	ctx := context.Background()

	user, err := st.UpsertUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("UpsertUserByEmail() error = %v", err)
	}

	session := &store.Token{
		Kind:      store.TokenKindAPI,
		Valid:     true,
		ExpiresAt: time.Now().Add(12 * time.Hour),
		UserID:    user.ID,
	}
	if err := st.CreateToken(ctx, session); err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}

	bearer, err := svc.signer.Sign(session.ID)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return user, session, bearer
}

func TestAuthorize_ResolvesPrincipal(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})
	ctx := context.Background()

	user, session, bearer := seedSession(t, st, svc, "teacher@x.com")
	st.users[user.ID].IsAdmin = true
	st.teacherOf[user.ID] = []int64{3, 7}

	principal, err := svc.Authorize(ctx, bearer)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	if principal.TokenID != session.ID {
		t.Errorf("TokenID = %d, want %d", principal.TokenID, session.ID)
	}
	if principal.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", principal.UserID, user.ID)
	}
	if !principal.IsAdmin {
		t.Error("IsAdmin should be true")
	}
	if !principal.IsTeacherOf(3) || !principal.IsTeacherOf(7) || principal.IsTeacherOf(4) {
		t.Errorf("TeacherOf = %v, want exactly {3, 7}", principal.TeacherOf)
	}
}

func TestAuthorize_TamperedBearer(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})
	ctx := context.Background()

	_, _, bearer := seedSession(t, st, svc, "a@x.com")

	last := bearer[len(bearer)-1]
	flipped := byte('A')
	if last == 'A' {
		flipped = 'B'
	}
	tampered := bearer[:len(bearer)-1] + string(flipped)

	if _, err := svc.Authorize(ctx, tampered); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthorize_UnknownTokenID(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})

	bearer, err := svc.signer.Sign(9999)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if _, err := svc.Authorize(context.Background(), bearer); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthorize_NonPositiveTokenID(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})

	for _, id := range []int64{0, -5} {
		bearer, err := svc.signer.Sign(id)
		if err != nil {
			t.Fatalf("Sign(%d) error = %v", id, err)
		}
		if _, err := svc.Authorize(context.Background(), bearer); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Authorize() with id %d error = %v, want ErrUnauthorized", id, err)
		}
	}
}

func TestAuthorize_InvalidatedToken(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})
	ctx := context.Background()

	_, session, bearer := seedSession(t, st, svc, "a@x.com")
	st.tokens[session.ID].Valid = false

	if _, err := svc.Authorize(ctx, bearer); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthorize_ExpiredSession(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})
	ctx := context.Background()

	_, session, bearer := seedSession(t, st, svc, "a@x.com")
	st.tokens[session.ID].ExpiresAt = time.Now().Add(-time.Second)

	if _, err := svc.Authorize(ctx, bearer); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
	}

	// Expiry is a read-time check only; the token is not mutated
	if !st.tokens[session.ID].Valid {
		t.Error("expired token must not be invalidated by authorize")
	}
}

func TestAuthorize_StoreFailureFailsClosed(t *testing.T) {
	st := newMockStore()
	svc := newTestService(st, &mockMailer{})
	ctx := context.Background()

	_, _, bearer := seedSession(t, st, svc, "a@x.com")
	st.setFail(errors.New("db gone"))

	_, err := svc.Authorize(ctx, bearer)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	tests := []struct {
		name      string
		requested int64
		principal *Principal
		wantErr   error
	}{
		{
			name:      "self access granted",
			requested: 5,
			principal: &Principal{UserID: 5},
		},
		{
			name:      "other user forbidden",
			requested: 6,
			principal: &Principal{UserID: 5},
			wantErr:   ErrForbidden,
		},
		{
			name:      "admin granted for other user",
			requested: 6,
			principal: &Principal{UserID: 5, IsAdmin: true},
		},
		{
			name:      "nil principal unauthorized",
			requested: 5,
			wantErr:   ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireSelfOrAdmin(tt.requested, tt.principal)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RequireSelfOrAdmin() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(&Principal{UserID: 1, IsAdmin: true}); err != nil {
		t.Errorf("RequireAdmin(admin) error = %v", err)
	}
	if err := RequireAdmin(&Principal{UserID: 1}); !errors.Is(err, ErrForbidden) {
		t.Errorf("RequireAdmin(non-admin) error = %v, want ErrForbidden", err)
	}
	if err := RequireAdmin(nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("RequireAdmin(nil) error = %v, want ErrUnauthorized", err)
	}
}

func TestRequireTeacherOrAdmin(t *testing.T) {
	teacher := &Principal{UserID: 1, TeacherOf: []int64{3}}

	if err := RequireTeacherOrAdmin(3, teacher); err != nil {
		t.Errorf("RequireTeacherOrAdmin(own course) error = %v", err)
	}
	if err := RequireTeacherOrAdmin(4, teacher); !errors.Is(err, ErrForbidden) {
		t.Errorf("RequireTeacherOrAdmin(other course) error = %v, want ErrForbidden", err)
	}
	if err := RequireTeacherOrAdmin(4, &Principal{UserID: 1, IsAdmin: true}); err != nil {
		t.Errorf("RequireTeacherOrAdmin(admin) error = %v", err)
	}
}
