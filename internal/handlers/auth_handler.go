package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"expiring-cache-api/internal/accounts"
	"expiring-cache-api/internal/middleware"
	"expiring-cache-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// CredentialsRequest represents the register and login request payload
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
}

// Register creates an account
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
		})
		return
	}

	account, err := h.Accounts.Register(req.Username, req.Password)
	switch {
	case errors.Is(err, accounts.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	case errors.Is(err, accounts.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Username and password are required."})
		return
	case err != nil:
		h.Logger.Error("register failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register account"})
		return
	}

	c.JSON(http.StatusCreated, AccountResponse{ID: account.ID, Username: account.Username})
}

// Login checks credentials and opens a session
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
		})
		return
	}

	account, err := h.Accounts.Authenticate(req.Username, req.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err != nil {
		h.Logger.Error("login failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	sessionID, err := h.Sessions.Create(account.ID)
	if err != nil {
		h.Logger.Error("session create failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to open session"})
		return
	}

	token, err := h.Tokens.Issue(sessionID, account.ID)
	if err != nil {
		h.Sessions.Revoke(sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		AccountID: account.ID,
		Username:  account.Username,
		Message:   "Login successful",
	})
}

// Logout ends the caller's session and notifies the account's other clients
// POST /api/logout
func (h *Handler) Logout(c *gin.Context) {
	h.Sessions.Revoke(c.GetString(middleware.ContextSessionID))
	event := realtime.Event{Type: realtime.EventSessionRevoked, At: time.Now().UTC()}
	h.Hub.Broadcast(c.GetString(middleware.ContextAccountID), event.Encode())
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
