package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/http/response"
	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/apierr"
	"github.com/yungbote/learndb-studio/internal/studio/session"
)

// SessionController is the surface of session.Controller the bridge drives.
type SessionController interface {
	Snapshot() session.State
	CreateSession(ctx context.Context) error
	DeleteSession(ctx context.Context) error
	ResetDatabase(ctx context.Context) error
	SetCurrentQuery(text string)
	ExecuteQuery(ctx context.Context, sql string) (*learndb.QueryResult, error)
	ExecuteCurrent(ctx context.Context) (*learndb.QueryResult, error)
	RefreshSchema(ctx context.Context) error
	PreviewTable(ctx context.Context, table string, limit int) (*learndb.TablePreview, error)
}

type SessionHandler struct {
	sessions SessionController
}

func NewSessionHandler(sessions SessionController) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GET /api/studio/session
func (h *SessionHandler) GetState(c *gin.Context) {
	response.RespondOK(c, gin.H{"state": h.sessions.Snapshot()})
}

// POST /api/studio/session
func (h *SessionHandler) Create(c *gin.Context) {
	if err := h.sessions.CreateSession(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": h.sessions.Snapshot()})
}

// DELETE /api/studio/session
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.DeleteSession(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": h.sessions.Snapshot()})
}

// POST /api/studio/session/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	if err := h.sessions.ResetDatabase(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": h.sessions.Snapshot()})
}

// PUT /api/studio/session/query
func (h *SessionHandler) SetQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	h.sessions.SetCurrentQuery(req.Query)
	response.RespondOK(c, gin.H{"state": h.sessions.Snapshot()})
}

// POST /api/studio/session/execute
//
// An omitted or empty sql runs the editor buffer.
func (h *SessionHandler) Execute(c *gin.Context) {
	var req struct {
		SQL string `json:"sql"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondErr(c, apierr.BadRequest("invalid_request", err))
			return
		}
	}
	var (
		res *learndb.QueryResult
		err error
	)
	if req.SQL == "" {
		res, err = h.sessions.ExecuteCurrent(c.Request.Context())
	} else {
		res, err = h.sessions.ExecuteQuery(c.Request.Context(), req.SQL)
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res, "state": h.sessions.Snapshot()})
}

// POST /api/studio/session/schema/refresh
func (h *SessionHandler) RefreshSchema(c *gin.Context) {
	if err := h.sessions.RefreshSchema(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	s := h.sessions.Snapshot()
	response.RespondOK(c, gin.H{"tables": s.Tables, "state": s})
}

// GET /api/studio/session/tables/:name/preview?limit=N
func (h *SessionHandler) PreviewTable(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondErr(c, apierr.BadRequest("invalid_limit", errors.New("limit must be an integer")))
			return
		}
		limit = n
	}
	name := c.Param("name")
	if name == "" {
		response.RespondErr(c, pkgerrors.ErrInvalidArgument)
		return
	}
	p, err := h.sessions.PreviewTable(c.Request.Context(), name, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"preview": p})
}
