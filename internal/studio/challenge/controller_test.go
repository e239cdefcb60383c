package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/learndb-studio/internal/data/progress"
	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/gateway/mock"
	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
)

const solution = "SELECT name FROM employees"

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string) (learndb.Progression, error) {
	return learndb.Progression{}, f.err
}

func (f failingStore) Save(context.Context, string, learndb.Progression) error { return f.err }

func fixture(t *testing.T, opts Options, store progress.Store) (*Controller, *mock.Gateway, string) {
	t.Helper()
	gw := mock.New()
	gw.AddChallenge(mock.Challenge{
		Detail: learndb.ChallengeDetail{
			ID: "select_basics_1", Title: "Select names", Difficulty: learndb.DifficultyBeginner,
			XPReward: 50, Category: learndb.CategorySelectBasics,
		},
		Hints:    []string{"Use SELECT", "Pick the name column"},
		Solution: solution,
	})
	gw.AddChallenge(mock.Challenge{
		Detail: learndb.ChallengeDetail{
			ID: "joins_1", Title: "Join two tables", Difficulty: learndb.DifficultyIntermediate,
			XPReward: 100, Category: learndb.CategoryJoins,
		},
		Hints:    []string{"INNER JOIN"},
		Solution: "SELECT * FROM a JOIN b ON a.id = b.a_id",
	})
	sess, err := gw.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	c, err := New(gw, store, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, gw, sess.ID
}

func load(t *testing.T, c *Controller, id string) {
	t.Helper()
	if err := c.LoadChallenge(context.Background(), id); err != nil {
		t.Fatalf("LoadChallenge(%s): %v", id, err)
	}
}

func TestInitialState(t *testing.T) {
	c, _, _ := fixture(t, Options{}, nil)
	s := c.Snapshot()
	if s.Phase != PhaseUnloaded || s.Challenge != nil || s.Progression.TotalPoints != 0 {
		t.Fatalf("state=%+v", s)
	}
}

func TestLoadChallengesMergesProgression(t *testing.T) {
	store := progress.NewMemoryStore()
	_ = store.Save(context.Background(), DefaultProfileID, learndb.Progression{
		Completed: learndb.NewCompletedSet("joins_1"), TotalPoints: 100,
	})
	c, _, _ := fixture(t, Options{}, store)
	ctx := context.Background()
	if err := c.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadChallenges(ctx); err != nil {
		t.Fatal(err)
	}
	s := c.Snapshot()
	if s.Catalog.TotalCount != 2 || len(s.Catalog.Categories) != 2 {
		t.Fatalf("catalog=%+v", s.Catalog)
	}
	for _, cat := range s.Catalog.Categories {
		for _, item := range cat.Challenges {
			if want := item.ID == "joins_1"; item.Completed != want {
				t.Fatalf("%s completed=%v want %v", item.ID, item.Completed, want)
			}
		}
	}
	if s.IsLoading {
		t.Fatalf("loading flag stuck")
	}
}

func TestLoadChallengesFailureKeepsCatalog(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	ctx := context.Background()
	_ = c.LoadChallenges(ctx)
	gw.Fail("ListChallenges", errors.New("offline"))
	if err := c.LoadChallenges(ctx); err == nil {
		t.Fatalf("expected error")
	}
	s := c.Snapshot()
	if s.Catalog.TotalCount != 2 || s.Error == "" || s.IsLoading {
		t.Fatalf("state=%+v", s)
	}
}

func TestHintRevealIsSequentialAndBounded(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	ctx := context.Background()

	for i, want := range []string{"Use SELECT", "Pick the name column"} {
		got, err := c.RevealHint(ctx)
		if err != nil || got != want {
			t.Fatalf("reveal %d: got %q err=%v", i, got, err)
		}
	}
	got, err := c.RevealHint(ctx)
	if !errors.Is(err, pkgerrors.ErrHintsExhausted) || got != "" {
		t.Fatalf("third reveal: got %q err=%v", got, err)
	}
	a := c.Snapshot().Attempt
	if a.HintsUsed != 2 || len(a.RevealedHints) != 2 {
		t.Fatalf("attempt=%+v", a)
	}
	if gw.Calls("GetHint") != 2 {
		t.Fatalf("GetHint calls=%d want 2", gw.Calls("GetHint"))
	}
}

func TestRevealHintWithoutChallenge(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	if _, err := c.RevealHint(context.Background()); !errors.Is(err, pkgerrors.ErrNoChallenge) {
		t.Fatalf("err=%v", err)
	}
	if gw.Calls("GetHint") != 0 {
		t.Fatalf("remote called")
	}
}

func TestRevealHintFailureKeepsAttempt(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	gw.Fail("GetHint", errors.New("timeout"))
	if _, err := c.RevealHint(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	s := c.Snapshot()
	if s.Attempt.HintsUsed != 0 || len(s.Attempt.RevealedHints) != 0 || s.Error == "" {
		t.Fatalf("state=%+v", s)
	}
}

func TestFailingSubmissionLeavesProgression(t *testing.T) {
	c, _, sid := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	res, err := c.SubmitSolution(context.Background(), sid, "SELECT 1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Fatalf("wrong answer passed")
	}
	s := c.Snapshot()
	if len(s.Progression.Completed) != 0 || s.Progression.TotalPoints != 0 {
		t.Fatalf("progression changed: %+v", s.Progression)
	}
	if s.Attempt.LastSubmission == nil || s.Attempt.LastSubmission.Passed || s.Phase != PhaseFailed {
		t.Fatalf("state=%+v", s)
	}
}

func TestPassingSubmissionAwardsPoints(t *testing.T) {
	store := progress.NewMemoryStore()
	c, _, sid := fixture(t, Options{}, store)
	load(t, c, "select_basics_1")
	res, err := c.SubmitSolution(context.Background(), sid, solution)
	if err != nil || !res.Passed || res.XPEarned != 50 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	s := c.Snapshot()
	if !s.Progression.Completed.Has("select_basics_1") || s.Progression.TotalPoints != 50 {
		t.Fatalf("progression=%+v", s.Progression)
	}
	if s.Phase != PhasePassed || s.IsSubmitting {
		t.Fatalf("phase=%s submitting=%v", s.Phase, s.IsSubmitting)
	}
	saved, _ := store.Load(context.Background(), DefaultProfileID)
	if saved.TotalPoints != 50 || !saved.Completed.Has("select_basics_1") {
		t.Fatalf("not persisted: %+v", saved)
	}
	if len(s.Badges) == 0 || s.Badges[0].ID != "first_challenge" {
		t.Fatalf("badges=%+v", s.Badges)
	}
}

func TestSubmissionSendsHintsUsed(t *testing.T) {
	c, _, sid := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	if _, err := c.RevealHint(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := c.SubmitSolution(context.Background(), sid, solution)
	if err != nil {
		t.Fatal(err)
	}
	if want := mock.Award(50, 1); res.XPEarned != want {
		t.Fatalf("xp=%d want %d", res.XPEarned, want)
	}
}

func TestResubmissionAwardPolicy(t *testing.T) {
	cases := []struct {
		policy AwardPolicy
		want   int
	}{
		{EveryPass, 100},
		{FirstPass, 50},
	}
	for _, tc := range cases {
		c, _, sid := fixture(t, Options{AwardPolicy: tc.policy}, nil)
		load(t, c, "select_basics_1")
		for i := 0; i < 2; i++ {
			if _, err := c.SubmitSolution(context.Background(), sid, solution); err != nil {
				t.Fatal(err)
			}
		}
		p := c.Snapshot().Progression
		if p.TotalPoints != tc.want || len(p.Completed) != 1 {
			t.Fatalf("%s: progression=%+v", tc.policy, p)
		}
	}
}

func TestSubmitPreconditions(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	if _, err := c.SubmitSolution(context.Background(), sid, solution); !errors.Is(err, pkgerrors.ErrNoChallenge) {
		t.Fatalf("err=%v", err)
	}
	load(t, c, "select_basics_1")
	if _, err := c.SubmitSolution(context.Background(), "", solution); !errors.Is(err, pkgerrors.ErrNoSession) {
		t.Fatalf("err=%v", err)
	}
	if gw.Calls("SubmitChallenge") != 0 {
		t.Fatalf("remote called")
	}
}

func TestSubmitTransportFailureKeepsPriorSubmission(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	_, _ = c.SubmitSolution(context.Background(), sid, "SELECT 1")
	gw.Fail("SubmitChallenge", errors.New("502"))
	if _, err := c.SubmitSolution(context.Background(), sid, solution); err == nil {
		t.Fatalf("expected error")
	}
	s := c.Snapshot()
	if s.Attempt.LastSubmission == nil || s.Attempt.LastSubmission.Passed || s.Error == "" {
		t.Fatalf("state=%+v", s)
	}
	if s.Phase != PhaseFailed || s.IsSubmitting {
		t.Fatalf("phase=%s submitting=%v", s.Phase, s.IsSubmitting)
	}
}

func TestLoadClearsAttemptButNotProgression(t *testing.T) {
	c, _, sid := fixture(t, Options{}, nil)
	ctx := context.Background()
	load(t, c, "select_basics_1")
	_, _ = c.RevealHint(ctx)
	_, _ = c.SubmitSolution(ctx, sid, solution)

	load(t, c, "select_basics_1")
	s := c.Snapshot()
	if s.Attempt.HintsUsed != 0 || len(s.Attempt.RevealedHints) != 0 || s.Attempt.LastSubmission != nil {
		t.Fatalf("attempt not cleared: %+v", s.Attempt)
	}
	if s.Phase != PhaseLoaded || !s.Progression.Completed.Has("select_basics_1") {
		t.Fatalf("state=%+v", s)
	}
}

func TestLoadFailureKeepsPreviousChallenge(t *testing.T) {
	c, _, _ := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	err := c.LoadChallenge(context.Background(), "missing")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	s := c.Snapshot()
	if s.ChallengeID() != "select_basics_1" || s.Phase != PhaseLoaded || s.Error == "" {
		t.Fatalf("state=%+v", s)
	}
}

func TestSetupChallenge(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	ctx := context.Background()
	if c.SetupChallenge(ctx, sid) {
		t.Fatalf("setup without challenge succeeded")
	}
	if gw.Calls("SetupChallenge") != 0 {
		t.Fatalf("remote called")
	}
	load(t, c, "select_basics_1")

	gw.Fail("SetupChallenge", errors.New("boom"))
	if c.SetupChallenge(ctx, sid) {
		t.Fatalf("expected failure")
	}
	s := c.Snapshot()
	if s.ChallengeID() != "select_basics_1" || s.Phase != PhaseLoaded || s.Error == "" {
		t.Fatalf("state=%+v", s)
	}

	gw.SetHook("SetupChallenge", nil)
	if !c.SetupChallenge(ctx, sid) {
		t.Fatalf("setup failed")
	}
	s = c.Snapshot()
	if s.Phase != PhaseReady || s.Error != "" || s.IsLoading {
		t.Fatalf("state=%+v", s)
	}
	sess, _ := gw.GetSession(ctx, sid)
	if sess.Mode != learndb.ModeChallenge {
		t.Fatalf("mode=%s", sess.Mode)
	}
}

func TestResetAttemptKeepsCompletion(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	ctx := context.Background()
	load(t, c, "select_basics_1")
	_, _ = c.RevealHint(ctx)
	_, _ = c.SubmitSolution(ctx, sid, solution)
	calls := gw.Calls("GetHint") + gw.Calls("SubmitChallenge") + gw.Calls("SetupChallenge")

	c.ResetAttempt()
	s := c.Snapshot()
	if s.Attempt.HintsUsed != 0 || s.Attempt.LastSubmission != nil || s.Phase != PhaseReady {
		t.Fatalf("state=%+v", s)
	}
	if !s.Progression.Completed.Has("select_basics_1") || s.ChallengeID() != "select_basics_1" {
		t.Fatalf("reset touched challenge or progression: %+v", s)
	}
	if after := gw.Calls("GetHint") + gw.Calls("SubmitChallenge") + gw.Calls("SetupChallenge"); after != calls {
		t.Fatalf("reset made remote calls")
	}
}

func TestRestartAttemptRunsSetup(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	ctx := context.Background()
	if c.RestartAttempt(ctx, sid) {
		t.Fatalf("restart without challenge succeeded")
	}
	load(t, c, "select_basics_1")
	_, _ = c.SubmitSolution(ctx, sid, "SELECT 1")
	if !c.RestartAttempt(ctx, sid) {
		t.Fatalf("restart failed: %s", c.Snapshot().Error)
	}
	s := c.Snapshot()
	if s.Phase != PhaseReady || s.Attempt.LastSubmission != nil {
		t.Fatalf("state=%+v", s)
	}
	if gw.Calls("SetupChallenge") != 1 {
		t.Fatalf("setup calls=%d", gw.Calls("SetupChallenge"))
	}
}

func TestResetProgression(t *testing.T) {
	store := progress.NewMemoryStore()
	c, _, sid := fixture(t, Options{}, store)
	ctx := context.Background()
	_ = c.LoadChallenges(ctx)
	load(t, c, "select_basics_1")
	_, _ = c.SubmitSolution(ctx, sid, solution)

	if err := c.ResetProgression(ctx); err != nil {
		t.Fatal(err)
	}
	s := c.Snapshot()
	if len(s.Progression.Completed) != 0 || s.Progression.TotalPoints != 0 || len(s.Badges) != 0 {
		t.Fatalf("state=%+v", s)
	}
	for _, cat := range s.Catalog.Categories {
		for _, item := range cat.Challenges {
			if item.Completed {
				t.Fatalf("%s still marked completed", item.ID)
			}
		}
	}
	saved, _ := store.Load(ctx, DefaultProfileID)
	if saved.TotalPoints != 0 || len(saved.Completed) != 0 {
		t.Fatalf("reset not persisted: %+v", saved)
	}
}

func TestPersistFailureDoesNotFailSubmission(t *testing.T) {
	c, _, sid := fixture(t, Options{}, failingStore{err: errors.New("disk full")})
	load(t, c, "select_basics_1")
	res, err := c.SubmitSolution(context.Background(), sid, solution)
	if err != nil || !res.Passed {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if c.Snapshot().Progression.TotalPoints != 50 {
		t.Fatalf("in-memory progression lost")
	}
	if err := c.Restore(context.Background()); err == nil {
		t.Fatalf("expected restore error")
	}
}

func TestStaleHintAfterResetIsDropped(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	started := make(chan struct{})
	release := make(chan struct{})
	gw.SetHook("GetHint", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	done := make(chan error, 1)
	go func() {
		_, err := c.RevealHint(context.Background())
		done <- err
	}()
	<-started
	c.ResetAttempt()
	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reveal never finished")
	}
	a := c.Snapshot().Attempt
	if a.HintsUsed != 0 || len(a.RevealedHints) != 0 {
		t.Fatalf("stale hint applied: %+v", a)
	}
}

func TestStalePassStillCountsTowardProgression(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")
	started := make(chan struct{})
	release := make(chan struct{})
	gw.SetHook("SubmitChallenge", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitSolution(context.Background(), sid, solution)
		done <- err
	}()
	<-started
	load(t, c, "joins_1")
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	s := c.Snapshot()
	if s.ChallengeID() != "joins_1" || s.Attempt.LastSubmission != nil || s.Phase != PhaseLoaded {
		t.Fatalf("stale submission touched new attempt: %+v", s)
	}
	if !s.Progression.Completed.Has("select_basics_1") || s.Progression.TotalPoints != 50 {
		t.Fatalf("progression=%+v", s.Progression)
	}
}

func TestSharedHintSurvivesCallerCancel(t *testing.T) {
	c, gw, _ := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw.SetHook("GetHint", func(context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	type reveal struct {
		hint string
		err  error
	}
	ctxA, cancelA := context.WithCancel(context.Background())
	first := make(chan reveal, 1)
	go func() {
		h, err := c.RevealHint(ctxA)
		first <- reveal{h, err}
	}()
	<-started
	second := make(chan reveal, 1)
	go func() {
		h, err := c.RevealHint(context.Background())
		second <- reveal{h, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()
	close(release)

	for name, ch := range map[string]chan reveal{"canceled caller": first, "live caller": second} {
		select {
		case r := <-ch:
			if r.err != nil || r.hint == "" {
				t.Fatalf("%s: hint=%q err=%v", name, r.hint, r.err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never returned", name)
		}
	}
	s := c.Snapshot()
	if s.Error != "" || s.Attempt.HintsUsed == 0 || s.Attempt.RevealedHints[0] != "Use SELECT" {
		t.Fatalf("state=%+v", s)
	}
}

func TestSubmitCompletesAfterCallerCancels(t *testing.T) {
	c, gw, sid := fixture(t, Options{}, nil)
	load(t, c, "select_basics_1")

	started := make(chan struct{})
	release := make(chan struct{})
	gw.SetHook("SubmitChallenge", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitSolution(ctx, sid, solution)
		done <- err
	}()
	<-started
	cancel()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("SubmitSolution: %v", err)
	}
	s := c.Snapshot()
	if s.Phase != PhasePassed || !s.Progression.Completed.Has("select_basics_1") || s.Error != "" {
		t.Fatalf("state=%+v", s)
	}
}

func TestFailedSubmissionLogsSQLOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, gw, sid := fixture(t, Options{Logger: &logger.Logger{SugaredLogger: zap.New(core).Sugar()}}, nil)
	load(t, c, "select_basics_1")
	gw.Fail("SubmitChallenge", errors.New("connection reset"))

	if _, err := c.SubmitSolution(context.Background(), sid, solution); err == nil {
		t.Fatalf("expected transport error")
	}
	for _, e := range logs.FilterField(zap.String("sql", solution)).All() {
		if e.Level > zapcore.DebugLevel {
			t.Fatalf("%s entry %q carries sql", e.Level, e.Message)
		}
	}
	if logs.FilterMessage("failed submission").Len() != 1 {
		t.Fatalf("failed submission not logged at debug")
	}
}
