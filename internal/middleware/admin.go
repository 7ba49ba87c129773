package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"expiring-cache-api/internal/accounts"

	"github.com/gin-gonic/gin"
)

// AdminOnlyMiddleware admits only accounts whose username is in admins. It must
// run after SessionAuthMiddleware. With no admins configured every request is
// refused.
func AdminOnlyMiddleware(directory *accounts.Directory, admins []string, logger *slog.Logger) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(admins))
	for _, name := range admins {
		allowed[name] = struct{}{}
	}

	return func(c *gin.Context) {
		account, err := directory.Lookup(c.GetString(ContextAccountID))
		if err != nil && !errors.Is(err, accounts.ErrNotFound) {
			logger.Error("admin check failed", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Account lookup unavailable",
			})
			return
		}
		if _, ok := allowed[account.Username]; err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		}

		c.Next()
	}
}
