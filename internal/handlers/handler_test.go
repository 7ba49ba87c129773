package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expiring-cache-api/internal/accounts"
	"expiring-cache-api/internal/auth"
	"expiring-cache-api/internal/middleware"
	"expiring-cache-api/internal/realtime"
	"expiring-cache-api/internal/session"
	"expiring-cache-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	h      *Handler
	router *gin.Engine
	sched  *testutil.ManualScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	sched := testutil.NewManualScheduler()

	dir, err := accounts.NewDirectory(db, accounts.Options{
		CacheTTL:   time.Minute,
		Scheduler:  sched,
		BcryptCost: bcrypt.MinCost,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	sessions, err := session.NewStore(session.Options{TTL: 10 * time.Minute, Scheduler: sched})
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("test-secret", "iss", "aud", time.Hour)
	require.NoError(t, err)

	h := &Handler{
		Accounts: dir,
		Sessions: sessions,
		Tokens:   tokens,
		Hub:      realtime.NewHub(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	r := gin.New()
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	protected := r.Group("/api")
	protected.Use(middleware.SessionAuthMiddleware(tokens, sessions))
	protected.GET("/me", h.Me)
	protected.GET("/accounts", h.ListAccounts)
	protected.POST("/logout", h.Logout)
	protected.POST("/admin/flush", h.FlushCaches)
	protected.GET("/admin/stats", h.Stats)
	protected.GET("/ws", h.WebSocket)

	return &fixture{h: h, router: r, sched: sched}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// signup registers username and logs in, returning the bearer token.
func (f *fixture) signup(t *testing.T, username string) LoginResponse {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pw-" + username}
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/register", "", creds).Code)

	w := f.do(http.MethodPost, "/api/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}
