package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/learndb-studio/internal/config"
	"github.com/yungbote/learndb-studio/internal/gateway"
	httpserver "github.com/yungbote/learndb-studio/internal/http"
	"github.com/yungbote/learndb-studio/internal/observability"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
	"github.com/yungbote/learndb-studio/internal/realtime/bus"
	"github.com/yungbote/learndb-studio/internal/studio/challenge"
	"github.com/yungbote/learndb-studio/internal/studio/session"
)

const version = "0.1.0"

type App struct {
	Log        *logger.Logger
	Cfg        *config.Config
	Gateway    gateway.Gateway
	Hub        *realtime.Hub
	Relay      *bus.Relay
	Sessions   *session.Controller
	Challenges *challenge.Controller
	Router     httpserver.RouterConfig

	closers      []func() error
	otelShutdown func(context.Context) error
}

// New loads configuration from the environment and builds the app against
// the LearnDB service it names.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := Build(ctx, cfg, log, nil)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// Build wires every component from cfg. A nil gw builds the HTTP client
// described by cfg.Gateway.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, gw gateway.Gateway) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	log.Info("initializing learndb studio", "env", cfg.Env, "addr", cfg.HTTP.Addr)
	a.otelShutdown = observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Env,
		Version:     version,
	})

	if gw == nil {
		client, err := wireGateway(cfg.Gateway, log)
		if err != nil {
			return nil, err
		}
		gw = client
	}
	a.Gateway = gw

	hub, relay, pub := wireRealtime(ctx, cfg.Realtime, log)
	a.Hub, a.Relay = hub, relay
	if a.Relay != nil {
		a.closers = append(a.closers, a.Relay.Close)
	}

	store, closeStore, err := wireProgressStore(cfg.Progress, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	a.Sessions, a.Challenges, err = wireControllers(cfg, log, gw, store, pub)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Challenges.Restore(ctx); err != nil {
		log.Warn("starting with empty progression", "error", err)
	}

	a.Router = wireRouter(cfg, log, a)
	return a, nil
}

// Warm creates the first session (when configured) and loads the catalog.
// Failures are logged; the view can retry both.
func (a *App) Warm(ctx context.Context) {
	if a.Cfg.Session.AutoCreate {
		if err := a.Sessions.EnsureSession(ctx); err != nil {
			a.Log.Warn("initial session not created", "error", err)
		}
	}
	if err := a.Challenges.LoadChallenges(ctx); err != nil {
		a.Log.Warn("initial challenge catalog not loaded", "error", err)
	}
}

// Run serves the bridge until ctx ends, then shuts the server down
// gracefully and drops the remote session.
func (a *App) Run(ctx context.Context) error {
	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:              a.Cfg.HTTP.Addr,
		ReadHeaderTimeout: a.Cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       a.Cfg.HTTP.IdleTimeout.Duration,
		BaseContext:       ctx,
	}, a.Router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("studio bridge listening", "addr", a.Cfg.HTTP.Addr)
		return srv.Run()
	})
	if a.Relay != nil {
		g.Go(func() error { return a.Relay.Run(gctx) })
	}
	g.Go(func() error {
		a.Warm(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("shutting down studio bridge")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
		if err := a.Sessions.DeleteSession(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Debug("session not deleted on shutdown", "error", err)
		}
		return nil
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
