package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/learndb-studio/internal/config"
	"github.com/yungbote/learndb-studio/internal/data/db"
	"github.com/yungbote/learndb-studio/internal/data/progress"
	"github.com/yungbote/learndb-studio/internal/gateway"
	httpserver "github.com/yungbote/learndb-studio/internal/http"
	httpH "github.com/yungbote/learndb-studio/internal/http/handlers"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
	"github.com/yungbote/learndb-studio/internal/realtime/bus"
	"github.com/yungbote/learndb-studio/internal/studio/challenge"
	"github.com/yungbote/learndb-studio/internal/studio/session"
)

// wireGateway prefers a minted JWT over a static API key when both are set.
func wireGateway(cfg config.GatewayConfig, log *logger.Logger) (*gateway.Client, error) {
	var tokens gateway.TokenSource
	switch {
	case strings.TrimSpace(cfg.JWTSecret) != "":
		src, err := gateway.NewJWTSource(cfg.JWTSecret, cfg.JWTIssuer, "learndb-studio", cfg.JWTTTL.Duration)
		if err != nil {
			return nil, fmt.Errorf("init gateway auth: %w", err)
		}
		tokens = src
	case strings.TrimSpace(cfg.APIKey) != "":
		tokens = gateway.StaticToken(cfg.APIKey)
	}
	client, err := gateway.New(gateway.Options{
		BaseURL:    cfg.BaseURL,
		Tokens:     tokens,
		Timeout:    cfg.Timeout.Duration,
		MaxRetries: cfg.MaxRetries,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("init gateway: %w", err)
	}
	log.Info("learndb gateway configured", "base_url", client.BaseURL(), "auth", tokens != nil)
	return client, nil
}

// wireRealtime returns the hub and the publisher controllers should use. With
// a reachable redis the publisher is a relay that also feeds the bus; an
// unreachable redis degrades to local fan-out.
func wireRealtime(ctx context.Context, cfg config.RealtimeConfig, log *logger.Logger) (*realtime.Hub, *bus.Relay, realtime.Publisher) {
	hub := realtime.NewHub(log)
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return hub, nil, hub
	}
	b, err := bus.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.Channel)
	if err != nil {
		log.Warn("redis bus unavailable; realtime stays local", "error", err)
		return hub, nil, hub
	}
	relay := bus.NewRelay(hub, b, log)
	return hub, relay, relay
}

func wireProgressStore(cfg config.ProgressConfig, log *logger.Logger) (progress.Store, func() error, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return progress.NewMemoryStore(), nil, nil
	case config.DriverSQLite, config.DriverPostgres:
		gdb, err := db.Open(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("init progress store: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("init progress store: %w", err)
		}
		return progress.NewGormStore(gdb, log), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported progress driver %q", cfg.Driver)
	}
}

func wireControllers(cfg *config.Config, log *logger.Logger, gw gateway.Gateway, store progress.Store, pub realtime.Publisher) (*session.Controller, *challenge.Controller, error) {
	ordering, ok := session.ParseOrdering(cfg.Session.Ordering)
	if !ok {
		return nil, nil, fmt.Errorf("unknown session ordering %q", cfg.Session.Ordering)
	}
	policy, ok := challenge.ParseAwardPolicy(cfg.Challenge.AwardPolicy)
	if !ok {
		return nil, nil, fmt.Errorf("unknown award policy %q", cfg.Challenge.AwardPolicy)
	}
	sc, err := session.New(gw, session.Options{
		HistoryLimit: cfg.Session.HistoryLimit,
		Ordering:     ordering,
		Publisher:    pub,
		Logger:       log,
	})
	if err != nil {
		return nil, nil, err
	}
	cc, err := challenge.New(gw, store, challenge.Options{
		ProfileID:   cfg.Progress.ProfileID,
		AwardPolicy: policy,
		Publisher:   pub,
		Logger:      log,
	})
	if err != nil {
		return nil, nil, err
	}
	return sc, cc, nil
}

func wireRouter(cfg *config.Config, log *logger.Logger, a *App) httpserver.RouterConfig {
	rc := httpserver.RouterConfig{
		Log:              log,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		SessionHandler:   httpH.NewSessionHandler(a.Sessions),
		ChallengeHandler: httpH.NewChallengeHandler(a.Challenges, a.Sessions),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, a.Hub),
		HealthHandler:    httpH.NewHealthHandler(a.Gateway),
	}
	if cfg.Otel.Enabled {
		rc.ServiceName = cfg.Otel.ServiceName
	}
	return rc
}
