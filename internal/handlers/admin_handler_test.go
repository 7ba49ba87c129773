package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestFlushCaches_EndsEverySession(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	before := cache.CurrentEpoch()

	w := f.do(http.MethodPost, "/api/admin/flush", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Epoch uint64 `json:"epoch"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, before+1, body.Epoch)

	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me", alice.Token, nil).Code)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/me", bob.Token, nil).Code)
	require.Zero(t, f.h.Sessions.Len())
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "alice")

	w := f.do(http.MethodGet, "/api/admin/stats", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Epoch    uint64 `json:"epoch"`
		Sessions int    `json:"sessions"`
		Clients  int    `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, cache.CurrentEpoch(), body.Epoch)
	require.Equal(t, 1, body.Sessions)
	require.Zero(t, body.Clients)
}

func TestWebSocket_ReceivesFlushEvent(t *testing.T) {
	f := newFixture(t)
	resp := f.signup(t, "alice")

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + resp.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return f.h.Hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	w := f.do(http.MethodPost, "/api/admin/flush", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var event realtime.Event
	require.NoError(t, json.Unmarshal(message, &event))
	require.Equal(t, realtime.EventCachesFlushed, event.Type)
	require.Equal(t, cache.CurrentEpoch(), event.Epoch)
}

func TestWebSocket_ReceivesLogoutEvent(t *testing.T) {
	f := newFixture(t)
	first := f.signup(t, "alice")
	second := f.do(http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "pw-alice"})
	require.Equal(t, http.StatusOK, second.Code)
	var other LoginResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &other))

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws?token="+other.Token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return f.h.Hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/logout", first.Token, nil).Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var event realtime.Event
	require.NoError(t, json.Unmarshal(message, &event))
	require.Equal(t, realtime.EventSessionRevoked, event.Type)
}
