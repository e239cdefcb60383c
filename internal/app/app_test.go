package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/learndb-studio/internal/config"
	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/gateway/mock"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STUDIO_CONFIG_PATH", "")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PROGRESS_DRIVER", "memory")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestBuildAndWarm(t *testing.T) {
	cfg := testConfig(t)
	gw := mock.New()
	gw.AddChallenge(mock.Challenge{
		Detail: learndb.ChallengeDetail{ID: "ddl_1", Category: learndb.CategoryDDL, XPReward: 25},
	})
	a, err := Build(context.Background(), cfg, logger.Nop(), gw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	a.Warm(context.Background())
	if !a.Sessions.Snapshot().HasSession() {
		t.Fatalf("session not auto-created")
	}
	if a.Challenges.Snapshot().Catalog.TotalCount != 1 {
		t.Fatalf("catalog not loaded")
	}
	if a.Router.SessionHandler == nil || a.Router.ChallengeHandler == nil || a.Router.RealtimeHandler == nil {
		t.Fatalf("router not wired: %+v", a.Router)
	}
}

func TestWarmWithoutAutoCreate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.AutoCreate = false
	gw := mock.New()
	a, err := Build(context.Background(), cfg, logger.Nop(), gw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	a.Warm(context.Background())
	if gw.Calls("CreateSession") != 0 {
		t.Fatalf("session created despite auto_create=false")
	}
}

func TestBuildRejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Challenge.AwardPolicy = "sometimes"
	if _, err := Build(context.Background(), cfg, logger.Nop(), mock.New()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSQLiteProgressSurvivesRebuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Progress.Driver = config.DriverSQLite
	cfg.Progress.DSN = filepath.Join(t.TempDir(), "progress.db")
	gw := mock.New()
	gw.AddChallenge(mock.Challenge{
		Detail:   learndb.ChallengeDetail{ID: "ddl_1", Category: learndb.CategoryDDL, XPReward: 40},
		Solution: "CREATE TABLE t (id INTEGER)",
	})
	ctx := context.Background()

	a, err := Build(ctx, cfg, logger.Nop(), gw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a.Warm(ctx)
	if err := a.Challenges.LoadChallenge(ctx, "ddl_1"); err != nil {
		t.Fatal(err)
	}
	sid := a.Sessions.Snapshot().SessionID()
	if _, err := a.Challenges.SubmitSolution(ctx, sid, "create table t (id integer)"); err != nil {
		t.Fatal(err)
	}
	a.Close()

	b, err := Build(ctx, cfg, logger.Nop(), gw)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer b.Close()
	p := b.Challenges.Snapshot().Progression
	if p.TotalPoints != 40 || !p.Completed.Has("ddl_1") {
		t.Fatalf("progression not restored: %+v", p)
	}
}

func TestWireGatewayAuth(t *testing.T) {
	log := logger.Nop()
	c, err := wireGateway(config.GatewayConfig{BaseURL: "http://learndb.test/api/", JWTSecret: "s3cret"}, log)
	if err != nil {
		t.Fatalf("wireGateway: %v", err)
	}
	if c.BaseURL() != "http://learndb.test/api" {
		t.Fatalf("base url=%q", c.BaseURL())
	}
	if _, err := wireGateway(config.GatewayConfig{}, log); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
