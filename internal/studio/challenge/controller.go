// Package challenge owns the challenge catalog, the loaded challenge and its
// attempt (hints and submissions), and durable Progression.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/learndb-studio/internal/data/progress"
	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
)

const DefaultProfileID = "local"

// Gateway is the part of the LearnDB surface the challenge controller needs.
type Gateway interface {
	ListChallenges(ctx context.Context) (learndb.Catalog, error)
	GetChallenge(ctx context.Context, challengeID string) (*learndb.ChallengeDetail, error)
	SetupChallenge(ctx context.Context, challengeID, sessionID string) error
	SubmitChallenge(ctx context.Context, challengeID, sessionID, sql string, hintsUsed int) (*learndb.SubmissionResult, error)
	GetHint(ctx context.Context, challengeID string, index int) (learndb.Hint, error)
}

type Options struct {
	ProfileID   string
	AwardPolicy AwardPolicy
	Publisher   realtime.Publisher
	Logger      *logger.Logger
}

type Controller struct {
	gw        Gateway
	store     progress.Store
	log       *logger.Logger
	pub       realtime.Publisher
	profileID string
	policy    AwardPolicy

	mu         sync.Mutex
	state      State
	remote     learndb.Catalog
	loading    int
	submitting int
	catalogSeq uint64
	loadSeq    uint64
	// attemptGen advances on every load and attempt reset; completions
	// carrying an older generation leave the attempt alone.
	attemptGen uint64
	hints      singleflight.Group

	persistMu sync.Mutex
}

// New builds a controller. A nil store keeps progression in memory only.
func New(gw Gateway, store progress.Store, opts Options) (*Controller, error) {
	if gw == nil {
		return nil, errors.New("challenge: gateway required")
	}
	if store == nil {
		store = progress.NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = realtime.Discard{}
	}
	profile := opts.ProfileID
	if profile == "" {
		profile = DefaultProfileID
	}
	c := &Controller{
		gw:        gw,
		store:     store,
		log:       log.With("component", "ChallengeController"),
		pub:       pub,
		profileID: profile,
		policy:    opts.AwardPolicy,
	}
	c.state = withDerived(State{Phase: PhaseUnloaded, Progression: learndb.NewProgression()}, 0, 0)
	return c, nil
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// commit installs next and publishes it. Callers hold c.mu.
func (c *Controller) commit(next State, ev realtime.Event) {
	c.state = withDerived(next, c.loading, c.submitting)
	c.pub.Publish(realtime.Message{
		Channel: realtime.ChannelChallenge,
		Event:   ev,
		Data:    c.state.clone(),
	})
}

// Restore loads the stored progression for the configured profile.
func (c *Controller) Restore(ctx context.Context) error {
	p, err := c.store.Load(ctx, c.profileID)
	if err != nil {
		c.log.Warn("restore progression failed", "profile_id", c.profileID, "error", err)
		return fmt.Errorf("restore progression: %w", err)
	}
	c.mu.Lock()
	c.commit(progressionRestored(c.state, p, c.remote), realtime.EventProgressionChanged)
	c.mu.Unlock()
	c.log.Debug("progression restored", "profile_id", c.profileID, "completed", len(p.Completed), "points", p.TotalPoints)
	return nil
}

// persist saves the latest progression. Saves are serialized so a slower
// older save never lands after a newer one.
func (c *Controller) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	p := c.Snapshot().Progression
	if err := c.store.Save(context.WithoutCancel(ctx), c.profileID, p); err != nil {
		c.log.Warn("persist progression failed", "profile_id", c.profileID, "error", err)
		return err
	}
	return nil
}

// LoadChallenges replaces the catalog wholesale. Completion flags are merged
// with local progression.
func (c *Controller) LoadChallenges(ctx context.Context) error {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	c.catalogSeq++
	seq := c.catalogSeq
	c.loading++
	c.commit(c.state, realtime.EventChallengeChanged)
	c.mu.Unlock()

	cat, err := c.gw.ListChallenges(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if err != nil {
		c.log.Warn("load challenges failed", "op", "ListChallenges", "error", err)
		c.commit(failed(c.state, fmt.Sprintf("failed to load challenges: %v", err)), realtime.EventChallengeChanged)
		return err
	}
	if seq != c.catalogSeq {
		c.commit(c.state, realtime.EventChallengeChanged)
		return nil
	}
	c.remote = cat.Clone()
	c.commit(catalogLoaded(c.state, cat), realtime.EventCatalogLoaded)
	c.log.Debug("challenges loaded", "total", cat.TotalCount, "categories", len(cat.Categories))
	return nil
}

// LoadChallenge fetches id and makes it the active challenge with a fresh
// attempt. Reloading the same id also clears the attempt. A failed load keeps
// the previous challenge.
func (c *Controller) LoadChallenge(ctx context.Context, id string) error {
	ctx = ctxutil.Detached(ctx)
	if id == "" {
		return pkgerrors.ErrInvalidArgument
	}
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	prev := c.state.Phase
	c.loading++
	c.commit(withPhase(c.state, PhaseLoading), realtime.EventChallengeChanged)
	c.mu.Unlock()

	d, err := c.gw.GetChallenge(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if seq != c.loadSeq {
		c.commit(c.state, realtime.EventChallengeChanged)
		return err
	}
	if err != nil {
		c.log.Warn("load challenge failed", "op", "GetChallenge", "challenge_id", id, "error", err)
		c.commit(withPhase(failed(c.state, fmt.Sprintf("failed to load challenge: %v", err)), prev), realtime.EventChallengeChanged)
		return err
	}
	if d == nil {
		d = &learndb.ChallengeDetail{ID: id}
	}
	c.attemptGen++
	c.commit(challengeLoaded(c.state, d), realtime.EventChallengeLoaded)
	c.log.Debug("challenge loaded", "challenge_id", id, "hints", d.HintsCount)
	return nil
}

// SetupChallenge prepares the loaded challenge inside sessionID and reports
// whether it worked. Without a loaded challenge or session it returns false
// without a remote call. A failure keeps the loaded challenge.
func (c *Controller) SetupChallenge(ctx context.Context, sessionID string) bool {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	id := c.state.ChallengeID()
	if id == "" || sessionID == "" {
		c.mu.Unlock()
		return false
	}
	gen := c.attemptGen
	c.loading++
	c.commit(withPhase(c.state, PhaseSettingUp), realtime.EventChallengeChanged)
	c.mu.Unlock()

	err := c.gw.SetupChallenge(ctx, id, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	current := gen == c.attemptGen && c.state.ChallengeID() == id
	if err != nil {
		c.log.Warn("setup challenge failed", "op", "SetupChallenge", "challenge_id", id, "session_id", sessionID, "error", err)
		next := failed(c.state, fmt.Sprintf("failed to set up challenge: %v", err))
		if current {
			next = withPhase(next, PhaseLoaded)
		}
		c.commit(next, realtime.EventChallengeChanged)
		return false
	}
	if !current {
		c.commit(c.state, realtime.EventChallengeChanged)
		return true
	}
	c.commit(setupDone(c.state), realtime.EventChallengeReady)
	c.log.Debug("challenge ready", "challenge_id", id, "session_id", sessionID)
	return true
}

// SubmitSolution grades sql for the loaded challenge, sending the current
// hint count. A pass adds the challenge to the completed set and awards its
// points under the configured policy. A transport failure leaves the prior
// submission untouched.
func (c *Controller) SubmitSolution(ctx context.Context, sessionID, sql string) (*learndb.SubmissionResult, error) {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	id := c.state.ChallengeID()
	if id == "" {
		c.mu.Unlock()
		return nil, pkgerrors.ErrNoChallenge
	}
	if sessionID == "" {
		c.mu.Unlock()
		return nil, pkgerrors.ErrNoSession
	}
	gen := c.attemptGen
	hints := c.state.Attempt.HintsUsed
	prev := c.state.Phase
	c.submitting++
	c.commit(withPhase(c.state, PhaseSubmitting), realtime.EventChallengeChanged)
	c.mu.Unlock()

	res, err := c.gw.SubmitChallenge(ctx, id, sessionID, sql, hints)

	c.mu.Lock()
	c.submitting--
	current := gen == c.attemptGen && c.state.ChallengeID() == id
	if err != nil {
		next := failed(c.state, fmt.Sprintf("failed to submit solution: %v", err))
		if current {
			next = withPhase(next, prev)
		}
		c.commit(next, realtime.EventChallengeChanged)
		c.mu.Unlock()
		c.log.Warn("submit solution failed", "op", "SubmitChallenge", "challenge_id", id, "session_id", sessionID, "error", err)
		c.log.Debug("failed submission", "challenge_id", id, "sql", sql)
		return nil, err
	}
	if res == nil {
		res = &learndb.SubmissionResult{Feedback: "empty response from grading service"}
	}
	next := c.state
	if current {
		next = submissionGraded(next, res)
	}
	if res.Passed {
		next = awardPass(next, id, res.XPEarned, c.policy)
	}
	c.commit(next, realtime.EventSubmissionGraded)
	c.mu.Unlock()

	c.log.Debug("solution graded", "challenge_id", id, "passed", res.Passed, "xp", res.XPEarned, "hints_used", hints, "stale", !current)
	if res.Passed {
		_ = c.persist(ctx)
	}
	return res.Clone(), nil
}

// RevealHint fetches the next hint of the loaded challenge. Without a
// challenge, or with the budget spent, it returns an error sentinel and makes
// no remote call. Concurrent reveals of the same index share one request and
// reveal it once.
func (c *Controller) RevealHint(ctx context.Context) (string, error) {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	d := c.state.Challenge
	if d == nil {
		c.mu.Unlock()
		return "", pkgerrors.ErrNoChallenge
	}
	if c.state.Attempt.HintsRemaining(d) == 0 {
		c.mu.Unlock()
		return "", pkgerrors.ErrHintsExhausted
	}
	id := d.ID
	index := c.state.Attempt.HintsUsed
	gen := c.attemptGen
	c.mu.Unlock()

	key := fmt.Sprintf("%d/%d", gen, index)
	v, err, _ := c.hints.Do(key, func() (any, error) {
		return c.revealHint(ctx, id, index, gen)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Controller) revealHint(ctx context.Context, id string, index int, gen uint64) (string, error) {
	c.mu.Lock()
	c.loading++
	c.commit(c.state, realtime.EventChallengeChanged)
	c.mu.Unlock()

	h, err := c.gw.GetHint(ctx, id, index)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if err != nil {
		c.log.Warn("reveal hint failed", "op", "GetHint", "challenge_id", id, "index", index, "error", err)
		c.commit(failed(c.state, fmt.Sprintf("failed to load hint: %v", err)), realtime.EventChallengeChanged)
		return "", err
	}
	if gen != c.attemptGen {
		c.commit(c.state, realtime.EventChallengeChanged)
		return h.Text, nil
	}
	c.commit(hintRevealed(c.state, index, h.Text), realtime.EventHintRevealed)
	return h.Text, nil
}

// ResetAttempt clears hints and the last submission. The loaded challenge and
// progression are untouched; no remote call is made.
func (c *Controller) ResetAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attemptGen++
	c.commit(attemptReset(c.state), realtime.EventAttemptReset)
}

// RestartAttempt resets the attempt and prepares the sandbox again.
func (c *Controller) RestartAttempt(ctx context.Context, sessionID string) bool {
	if c.Snapshot().ChallengeID() == "" {
		return false
	}
	c.ResetAttempt()
	return c.SetupChallenge(ctx, sessionID)
}

// ResetProgression clears the completed set and points. It is the only way
// completed membership shrinks.
func (c *Controller) ResetProgression(ctx context.Context) error {
	c.mu.Lock()
	c.commit(progressionReset(c.state, c.remote), realtime.EventProgressionChanged)
	c.mu.Unlock()
	c.log.Info("progression reset", "profile_id", c.profileID)
	return c.persist(ctx)
}
