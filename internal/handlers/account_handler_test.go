package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "alice")

	w := f.do(http.MethodGet, "/api/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, resp.AccountID, me.ID)
	require.Equal(t, "alice", me.Username)
}

func TestMe_RequiresToken(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me", "", nil).Code)
}

func TestListAccounts(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "bob")
	f.signup(t, "alice")

	w := f.do(http.MethodGet, "/api/accounts", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Accounts []AccountResponse `json:"accounts"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	require.Equal(t, "alice", body.Accounts[0].Username)
}
