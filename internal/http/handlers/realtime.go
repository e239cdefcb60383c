package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/studio/events?channels=session,challenge
//
// Streams state snapshots as server-sent events. Both channels are
// subscribed when none are named.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	channels := []string{realtime.ChannelSession, realtime.ChannelChallenge}
	if raw := strings.TrimSpace(c.Query("channels")); raw != "" {
		channels = strings.Split(raw, ",")
	}

	client := h.hub.NewClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Debug("event stream open", "client_id", client.ID, "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("event stream closed", "client_id", client.ID)
}
