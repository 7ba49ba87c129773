package middleware

import (
	"net/http"
	"strings"

	"expiring-cache-api/internal/auth"
	"expiring-cache-api/internal/session"

	"github.com/gin-gonic/gin"
)

// Context keys set by SessionAuthMiddleware.
const (
	ContextAccountID = "account_id"
	ContextSessionID = "session_id"
)

// SessionAuthMiddleware validates the bearer envelope and resolves the session
// it names. Resolving a session extends it.
func SessionAuthMiddleware(tokens *auth.TokenIssuer, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Fallback for WebSocket/browser where custom headers cannot be set: allow token in query param
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		accountID, ok := sessions.Resolve(claims.SessionID)
		if !ok || accountID != claims.AccountID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		// Store session info in context for use in handlers
		c.Set(ContextAccountID, accountID)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	}
}
