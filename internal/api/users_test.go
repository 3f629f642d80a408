// ABOUTME: Tests for the user endpoints and their access-control rules
// ABOUTME: Admin-only listing, self-or-admin reads and partial updates

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers_AdminOnly(t *testing.T) {
	h := newHarness(t)

	student := h.login(t, "student@example.com")
	resp := h.do(t, http.MethodGet, "/users", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := h.loginAdmin(t, "admin@example.com")
	resp = h.do(t, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []UserResponse
	decodeJSON(t, resp, &users)
	assert.Len(t, users, 2)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	h := newHarness(t)

	input := UserInput{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}

	student := h.login(t, "student@example.com")
	resp := h.do(t, http.MethodPost, "/users", student, input)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := h.loginAdmin(t, "admin@example.com")
	resp = h.do(t, http.MethodPost, "/users", admin, input)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]int64
	decodeJSON(t, resp, &created)
	assert.Positive(t, created["id"])
}

func TestCreateUser_Validation(t *testing.T) {
	h := newHarness(t)
	admin := h.loginAdmin(t, "admin@example.com")

	resp := h.do(t, http.MethodPost, "/users", admin, UserInput{FirstName: "Grace", LastName: "Hopper", Email: "bad"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/users", admin, UserInput{Email: "grace@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	h := newHarness(t)

	alice := h.login(t, "alice@example.com")
	bob := h.login(t, "bob@example.com")
	admin := h.loginAdmin(t, "admin@example.com")

	aliceUser, err := h.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	path := "/users/" + itoa(aliceUser.ID)

	// Self
	resp := h.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got UserResponse
	decodeJSON(t, resp, &got)
	assert.Equal(t, "alice@example.com", got.Email)

	// Another non-admin
	resp = h.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin
	resp = h.do(t, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateUser_PartialUpdate(t *testing.T) {
	h := newHarness(t)

	alice := h.login(t, "alice@example.com")
	aliceUser, err := h.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	path := "/users/" + itoa(aliceUser.ID)

	resp := h.do(t, http.MethodPut, path, alice, UserInput{FirstName: "Alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UserResponse
	decodeJSON(t, resp, &got)
	assert.Equal(t, "Alice", got.FirstName)
	// Untouched fields survive
	assert.Equal(t, "alice@example.com", got.Email)

	resp = h.do(t, http.MethodPut, path, alice, UserInput{LastName: "Liddell"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "Liddell", got.LastName)
}

func TestDeleteUser_AdminOnly(t *testing.T) {
	h := newHarness(t)

	alice := h.login(t, "alice@example.com")
	admin := h.loginAdmin(t, "admin@example.com")

	aliceUser, err := h.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	path := "/users/" + itoa(aliceUser.ID)

	// A user cannot delete even their own account
	resp := h.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The deleted user's session is gone with the account
	resp = h.do(t, http.MethodGet, "/courses", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetUser_NotFound(t *testing.T) {
	h := newHarness(t)
	admin := h.loginAdmin(t, "admin@example.com")

	resp := h.do(t, http.MethodGet, "/users/9999", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
