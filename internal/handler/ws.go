package handler

import (
	"github.com/gin-gonic/gin"

	"beepstream/internal/hub"
)

type WSHandler struct {
	Hub *hub.Hub
}

func (h *WSHandler) Register(r *gin.Engine) {
	r.GET("/ws", h.serve)
}

func (h *WSHandler) serve(c *gin.Context) {
	h.Hub.ServeWS(c.Writer, c.Request)
}
