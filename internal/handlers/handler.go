package handlers

import (
	"log/slog"

	"expiring-cache-api/internal/accounts"
	"expiring-cache-api/internal/auth"
	"expiring-cache-api/internal/realtime"
	"expiring-cache-api/internal/session"
)

// Handler serves the HTTP API.
type Handler struct {
	Accounts *accounts.Directory
	Sessions *session.Store
	Tokens   *auth.TokenIssuer
	Hub      *realtime.Hub
	Logger   *slog.Logger
}
