package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vaultd/internal/roles"
)

type HealthHandler struct {
	DB    *gorm.DB
	Roles *roles.Manager
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	paused := false
	if h.Roles != nil {
		paused = h.Roles.IsPaused()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "paused": paused})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		// Persistence is optional; the accounting cores are always ready.
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "disabled"})
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
