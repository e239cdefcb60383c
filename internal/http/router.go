package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learndb-studio/internal/http/handlers"
	httpMW "github.com/yungbote/learndb-studio/internal/http/middleware"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	SessionHandler   *httpH.SessionHandler
	ChallengeHandler *httpH.ChallengeHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/studio")
	{
		if cfg.HealthHandler != nil {
			api.GET("/remote/health", cfg.HealthHandler.Remote)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
		}

		// Session
		if cfg.SessionHandler != nil {
			api.GET("/session", cfg.SessionHandler.GetState)
			api.POST("/session", cfg.SessionHandler.Create)
			api.DELETE("/session", cfg.SessionHandler.Delete)
			api.POST("/session/reset", cfg.SessionHandler.Reset)
			api.PUT("/session/query", cfg.SessionHandler.SetQuery)
			api.POST("/session/execute", cfg.SessionHandler.Execute)
			api.POST("/session/schema/refresh", cfg.SessionHandler.RefreshSchema)
			api.GET("/session/tables/:name/preview", cfg.SessionHandler.PreviewTable)
		}

		// Challenges
		if cfg.ChallengeHandler != nil {
			api.GET("/challenges", cfg.ChallengeHandler.ListChallenges)
			api.POST("/challenges/refresh", cfg.ChallengeHandler.RefreshChallenges)
			api.POST("/challenges/:id/load", cfg.ChallengeHandler.LoadChallenge)
			api.GET("/challenge", cfg.ChallengeHandler.GetState)
			api.POST("/challenge/setup", cfg.ChallengeHandler.Setup)
			api.POST("/challenge/submit", cfg.ChallengeHandler.Submit)
			api.POST("/challenge/hints", cfg.ChallengeHandler.RevealHint)
			api.POST("/challenge/attempt/reset", cfg.ChallengeHandler.ResetAttempt)
			api.POST("/challenge/attempt/restart", cfg.ChallengeHandler.RestartAttempt)

			// Progress
			api.GET("/progress", cfg.ChallengeHandler.GetProgress)
			api.POST("/progress/reset", cfg.ChallengeHandler.ResetProgress)
		}
	}

	return r
}
