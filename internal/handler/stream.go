package handler

import (
	"github.com/gin-gonic/gin"

	"vaultd/internal/stream"
)

type StreamHandler struct {
	Hub *stream.Hub
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", h.serve)
}

// @Summary Live vault event stream (websocket)
// @Tags stream
// @Success 101 {string} string "switching protocols"
// @Router /api/v1/stream [get]
func (h *StreamHandler) serve(c *gin.Context) {
	h.Hub.Serve(c.Writer, c.Request)
}
