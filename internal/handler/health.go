package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"beepstream/internal/db"
	"beepstream/internal/hub"
)

type HealthHandler struct {
	DB  *db.DB
	Hub *hub.Hub
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil || h.DB.SQL == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	if err := db.Ping(h.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	clients := 0
	if h.Hub != nil {
		clients = h.Hub.Len()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "ws_clients": clients})
}
