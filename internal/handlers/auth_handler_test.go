package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "alice")
	require.Equal(t, "alice", resp.Username)
	require.NotEmpty(t, resp.AccountID)
	require.Equal(t, 1, f.h.Sessions.Len())
}

func TestRegister_BadRequest(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/register", "", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	creds := map[string]string{"username": "alice", "password": "pw"}
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/register", "", creds).Code)

	w := f.do(http.MethodPost, "/api/register", "", creds)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice")

	w := f.do(http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Invalid username or password", body["error"])
}

func TestLogin_BadRequest(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/login", "", map[string]string{"password": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_EndsSession(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "alice")

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me", resp.Token, nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/logout", resp.Token, nil).Code)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me", resp.Token, nil).Code)
	require.Zero(t, f.h.Sessions.Len())
}
