package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /v1/users/:userID/unlocks/stream
func (h *RealtimeHandler) UnlockStream(c *gin.Context) {
	userID := c.Param("userID")
	client := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(client)

	h.log.Info("unlock stream open", "user_id", userID, "client_id", client.ID)
	h.hub.Serve(c.Writer, c.Request, client)
	h.log.Debug("unlock stream closed", "user_id", userID, "client_id", client.ID)
}
