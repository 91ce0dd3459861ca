package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dukapos/backend/internal/infrastructure/persistence"
)

// SystemHandler exposes health and readiness endpoints. These routes are
// unauthenticated so load balancers can probe them.
type SystemHandler struct {
	BaseHandler
	db      *persistence.Database
	started time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{
		db:      db,
		started: time.Now(),
	}
}

// RegisterRoutes registers the health routes directly on the engine
func (h *SystemHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

// Health reports liveness
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Ready reports readiness, including database connectivity
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
