package handlers

import (
	"errors"
	"net/http"

	"expiring-cache-api/internal/accounts"
	"expiring-cache-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AccountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Me returns the caller's account
// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	account, err := h.Accounts.Lookup(c.GetString(middleware.ContextAccountID))
	if errors.Is(err, accounts.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch account"})
		return
	}
	c.JSON(http.StatusOK, AccountResponse{ID: account.ID, Username: account.Username})
}

// ListAccounts returns all accounts (protected)
// GET /api/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	list, err := h.Accounts.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"})
		return
	}

	// Map to safe response payload
	resp := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, AccountResponse{
			ID:       a.ID,
			Username: a.Username,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": resp,
		"count":    len(resp),
	})
}
