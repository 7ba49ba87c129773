package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

// FlushCaches invalidates every cache in the process, sessions included, and
// tells connected clients about it
// POST /api/admin/flush
func (h *Handler) FlushCaches(c *gin.Context) {
	epoch := cache.BumpGlobalEpoch()
	event := realtime.Event{Type: realtime.EventCachesFlushed, Epoch: epoch, At: time.Now().UTC()}
	notified := h.Hub.BroadcastAll(event.Encode())
	h.Logger.Info("caches flushed", slog.Uint64("epoch", epoch), slog.Int("notified", notified))
	c.JSON(http.StatusOK, gin.H{"epoch": epoch, "notified": notified})
}

// Stats reports cache and connection counters
// GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"epoch":    cache.CurrentEpoch(),
		"sessions": h.Sessions.Len(),
		"clients":  h.Hub.Len(),
	})
}
