// ABOUTME: In-memory TokenStore and Mailer fakes shared by the auth tests
// ABOUTME: The fakes support forced failures to exercise fail-closed paths

package auth

import (
	"context"
	"sync"

	"github.com/coursebook/coursebook/internal/store"
)

// mockStore is an in-memory TokenStore. Setting failWith makes every
// call return that error, for exercising store-failure paths.
type mockStore struct {
	mu          sync.Mutex
	nextTokenID int64
	nextUserID  int64
	tokens      map[int64]*store.Token
	users       map[int64]*store.User
	teacherOf   map[int64][]int64
	failWith    error
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens:    make(map[int64]*store.Token),
		users:     make(map[int64]*store.User),
		teacherOf: make(map[int64][]int64),
	}
}

func (m *mockStore) CreateToken(ctx context.Context, token *store.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if token.ChallengeCode != "" {
		for _, t := range m.tokens {
			if t.ChallengeCode == token.ChallengeCode {
				return store.ErrDuplicateChallengeCode
			}
		}
	}
	m.nextTokenID++
	token.ID = m.nextTokenID
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *mockStore) GetToken(ctx context.Context, id int64) (*store.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	t, ok := m.tokens[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) GetTokenByChallengeCode(ctx context.Context, code string) (*store.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, t := range m.tokens {
		if t.ChallengeCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) RedeemChallenge(ctx context.Context, challengeID int64, session *store.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	challenge, ok := m.tokens[challengeID]
	if !ok || !challenge.Valid {
		return store.ErrNotFound
	}
	challenge.Valid = false
	m.nextTokenID++
	session.ID = m.nextTokenID
	cp := *session
	m.tokens[session.ID] = &cp
	return nil
}

func (m *mockStore) UpsertUserByEmail(ctx context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	m.nextUserID++
	u := &store.User{ID: m.nextUserID, Email: email}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockStore) GetUser(ctx context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) TeacherCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.teacherOf[userID], nil
}

// setFail makes every subsequent store call return err
func (m *mockStore) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// mockMailer records delivered challenge codes and can be told to fail
type mockMailer struct {
	mu       sync.Mutex
	sent     []sentCode
	failWith error
}

type sentCode struct {
	email string
	code  string
}

func (m *mockMailer) SendChallengeCode(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentCode{email: email, code: code})
	return nil
}

func (m *mockMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].code
}
