package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learndb-studio/internal/gateway"
	"github.com/yungbote/learndb-studio/internal/http/response"
)

type HealthHandler struct {
	remote gateway.Diagnostics
}

func NewHealthHandler(remote gateway.Diagnostics) *HealthHandler {
	return &HealthHandler{remote: remote}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/studio/remote/health
//
// Info is best effort; older LearnDB builds only serve /health.
func (h *HealthHandler) Remote(c *gin.Context) {
	if h.remote == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "remote_unconfigured", errors.New("no LearnDB gateway configured"))
		return
	}
	ctx := c.Request.Context()
	health, err := h.remote.Health(ctx)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	payload := gin.H{"health": health}
	if info, err := h.remote.Info(ctx); err == nil {
		payload["info"] = info
	}
	response.RespondOK(c, payload)
}
