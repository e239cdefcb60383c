package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/http/response"
	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/apierr"
	"github.com/yungbote/learndb-studio/internal/studio/challenge"
	"github.com/yungbote/learndb-studio/internal/studio/session"
)

type ChallengeController interface {
	Snapshot() challenge.State
	LoadChallenges(ctx context.Context) error
	LoadChallenge(ctx context.Context, id string) error
	SetupChallenge(ctx context.Context, sessionID string) bool
	SubmitSolution(ctx context.Context, sessionID, sql string) (*learndb.SubmissionResult, error)
	RevealHint(ctx context.Context) (string, error)
	ResetAttempt()
	RestartAttempt(ctx context.Context, sessionID string) bool
	ResetProgression(ctx context.Context) error
}

// SessionSource supplies the active session id. The challenge controller
// never reads session state itself; the bridge passes it along.
type SessionSource interface {
	Snapshot() session.State
}

type ChallengeHandler struct {
	challenges ChallengeController
	sessions   SessionSource
}

func NewChallengeHandler(challenges ChallengeController, sessions SessionSource) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, sessions: sessions}
}

func (h *ChallengeHandler) sessionID() string {
	return h.sessions.Snapshot().SessionID()
}

// GET /api/studio/challenges
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	s := h.challenges.Snapshot()
	response.RespondOK(c, gin.H{"catalog": s.Catalog})
}

// POST /api/studio/challenges/refresh
func (h *ChallengeHandler) RefreshChallenges(c *gin.Context) {
	if err := h.challenges.LoadChallenges(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"catalog": h.challenges.Snapshot().Catalog})
}

// POST /api/studio/challenges/:id/load
func (h *ChallengeHandler) LoadChallenge(c *gin.Context) {
	if err := h.challenges.LoadChallenge(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": h.challenges.Snapshot()})
}

// GET /api/studio/challenge
func (h *ChallengeHandler) GetState(c *gin.Context) {
	response.RespondOK(c, gin.H{"state": h.challenges.Snapshot()})
}

// setupFailure explains why SetupChallenge or RestartAttempt reported false.
func (h *ChallengeHandler) setupFailure(c *gin.Context, sessionID string) {
	s := h.challenges.Snapshot()
	switch {
	case s.Challenge == nil:
		response.RespondErr(c, pkgerrors.ErrNoChallenge)
	case sessionID == "":
		response.RespondErr(c, pkgerrors.ErrNoSession)
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"error": response.APIError{Message: s.Error, Code: "setup_failed"},
			"state": s,
		})
	}
}

// POST /api/studio/challenge/setup
func (h *ChallengeHandler) Setup(c *gin.Context) {
	sid := h.sessionID()
	if !h.challenges.SetupChallenge(c.Request.Context(), sid) {
		h.setupFailure(c, sid)
		return
	}
	response.RespondOK(c, gin.H{"state": h.challenges.Snapshot()})
}

// POST /api/studio/challenge/submit
func (h *ChallengeHandler) Submit(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.challenges.SubmitSolution(c.Request.Context(), h.sessionID(), req.SQL)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res, "state": h.challenges.Snapshot()})
}

// POST /api/studio/challenge/hints
func (h *ChallengeHandler) RevealHint(c *gin.Context) {
	hint, err := h.challenges.RevealHint(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"hint": hint, "state": h.challenges.Snapshot()})
}

// POST /api/studio/challenge/attempt/reset
func (h *ChallengeHandler) ResetAttempt(c *gin.Context) {
	h.challenges.ResetAttempt()
	response.RespondOK(c, gin.H{"state": h.challenges.Snapshot()})
}

// POST /api/studio/challenge/attempt/restart
func (h *ChallengeHandler) RestartAttempt(c *gin.Context) {
	sid := h.sessionID()
	if !h.challenges.RestartAttempt(c.Request.Context(), sid) {
		h.setupFailure(c, sid)
		return
	}
	response.RespondOK(c, gin.H{"state": h.challenges.Snapshot()})
}

// GET /api/studio/progress
func (h *ChallengeHandler) GetProgress(c *gin.Context) {
	s := h.challenges.Snapshot()
	response.RespondOK(c, gin.H{"progression": s.Progression, "badges": s.Badges})
}

// POST /api/studio/progress/reset
func (h *ChallengeHandler) ResetProgress(c *gin.Context) {
	if err := h.challenges.ResetProgression(c.Request.Context()); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "persist_failed", err)
		return
	}
	s := h.challenges.Snapshot()
	response.RespondOK(c, gin.H{"progression": s.Progression, "badges": s.Badges})
}
