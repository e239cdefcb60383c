// Package session owns the active LearnDB session, the query editor buffer,
// execution results and history, and the schema cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
)

const (
	DefaultHistoryLimit = 50
	DefaultPreviewLimit = 10
	MaxPreviewLimit     = 100
)

// Gateway is the part of the LearnDB surface the session controller needs.
type Gateway interface {
	CreateSession(ctx context.Context) (learndb.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) error
	ExecuteQuery(ctx context.Context, sessionID, sql string) (*learndb.QueryResult, error)
	ListTables(ctx context.Context, sessionID string) ([]learndb.Table, error)
	PreviewTable(ctx context.Context, sessionID, table string, limit int) (*learndb.TablePreview, error)
}

type Options struct {
	HistoryLimit int
	Ordering     Ordering
	Publisher    realtime.Publisher
	Logger       *logger.Logger
	Now          func() time.Time
}

type Controller struct {
	gw       Gateway
	log      *logger.Logger
	pub      realtime.Publisher
	now      func() time.Time
	limit    int
	ordering Ordering

	mu        sync.Mutex
	state     State
	loading   int
	executing int
	execSeq   uint64

	// schemaGen advances whenever the remote catalog may have changed;
	// appliedGen is the generation of the tables currently held.
	schemaGen  uint64
	appliedGen uint64
	refreshes  singleflight.Group
}

func New(gw Gateway, opts Options) (*Controller, error) {
	if gw == nil {
		return nil, errors.New("session: gateway required")
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = realtime.Discard{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		gw:       gw,
		log:      log.With("component", "SessionController"),
		pub:      pub,
		now:      now,
		limit:    limit,
		ordering: opts.Ordering,
	}, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// commit installs next and publishes it. Callers hold c.mu.
func (c *Controller) commit(next State, ev realtime.Event) {
	c.state = withFlags(next, c.loading, c.executing)
	c.pub.Publish(realtime.Message{
		Channel: realtime.ChannelSession,
		Event:   ev,
		Data:    c.state.clone(),
	})
}

func (c *Controller) beginLoading() {
	c.mu.Lock()
	c.loading++
	c.commit(c.state, realtime.EventSessionChanged)
	c.mu.Unlock()
}

// endLoading applies fn (if any) and drops the loading counter in one step.
func (c *Controller) endLoading(ev realtime.Event, fn func(State) State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	next := c.state
	if fn != nil {
		next = fn(c.state)
	}
	c.commit(next, ev)
}

// Operations that reach the service run detached from the caller's
// cancellation: once dispatched, a call always completes and its result is
// applied. The gateway's own timeout still bounds it.

// CreateSession asks the service for a fresh session, replaces the active one
// and loads its schema. A failed create keeps whatever session was active.
func (c *Controller) CreateSession(ctx context.Context) error {
	ctx = ctxutil.Detached(ctx)
	c.beginLoading()
	sess, err := c.gw.CreateSession(ctx)
	if err != nil {
		c.log.Warn("create session failed", "op", "CreateSession", "error", err)
		c.endLoading(realtime.EventSessionChanged, func(s State) State {
			return failed(s, fmt.Sprintf("failed to create session: %v", err))
		})
		return err
	}
	c.endLoading(realtime.EventSessionCreated, func(s State) State {
		c.schemaGen++
		c.appliedGen = 0
		return sessionCreated(s, sess)
	})
	c.log.Info("session created", "session_id", sess.ID)

	if err := c.RefreshSchema(ctx); err != nil && !errors.Is(err, pkgerrors.ErrNoSession) {
		c.log.Debug("initial schema load failed", "session_id", sess.ID, "error", err)
	}
	return nil
}

// EnsureSession creates a session only when none is active.
func (c *Controller) EnsureSession(ctx context.Context) error {
	if c.Snapshot().HasSession() {
		return nil
	}
	return c.CreateSession(ctx)
}

// DeleteSession drops the active session remotely and locally. A session the
// service no longer knows about is still cleared locally.
func (c *Controller) DeleteSession(ctx context.Context) error {
	ctx = ctxutil.Detached(ctx)
	id := c.Snapshot().SessionID()
	if id == "" {
		return pkgerrors.ErrNoSession
	}
	c.beginLoading()
	err := c.gw.DeleteSession(ctx, id)
	if err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
		c.log.Warn("delete session failed", "op", "DeleteSession", "session_id", id, "error", err)
		c.endLoading(realtime.EventSessionChanged, func(s State) State {
			return failed(s, fmt.Sprintf("failed to delete session: %v", err))
		})
		return err
	}
	c.endLoading(realtime.EventSessionDeleted, func(s State) State {
		if s.SessionID() != id {
			return s
		}
		c.schemaGen++
		return sessionDeleted(s)
	})
	return nil
}

// SetCurrentQuery replaces the editor buffer. No remote call is made.
func (c *Controller) SetCurrentQuery(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(queryTextChanged(c.state, text), realtime.EventQueryTextChanged)
}

// ExecuteQuery runs sql against the active session. Without a session it
// returns ErrNoSession and makes no remote call. Otherwise the returned
// result is never nil: a transport failure yields a synthesized result with
// Success=false alongside the error. Structural statements trigger a schema
// refresh before ExecuteQuery returns.
func (c *Controller) ExecuteQuery(ctx context.Context, sql string) (*learndb.QueryResult, error) {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	id := c.state.SessionID()
	if id == "" {
		c.commit(failed(c.state, "no active session"), realtime.EventSessionChanged)
		c.mu.Unlock()
		return nil, pkgerrors.ErrNoSession
	}
	c.execSeq++
	seq := c.execSeq
	c.executing++
	c.commit(c.state, realtime.EventQueryStarted)
	c.mu.Unlock()

	res, err := c.gw.ExecuteQuery(ctx, id, sql)

	c.mu.Lock()
	c.executing--
	current := c.ordering == LatestCompletion || seq == c.execSeq
	sameSession := c.state.SessionID() == id
	if err != nil {
		res = learndb.FailedResult(err.Error())
		c.commit(queryFailed(c.state, res, current && sameSession), realtime.EventQueryExecuted)
		c.mu.Unlock()
		c.log.Warn("execute query failed", "op", "ExecuteQuery", "session_id", id, "error", err)
		c.log.Debug("failed query", "session_id", id, "sql", sql)
		return res, err
	}
	if res == nil {
		res = learndb.FailedResult("empty response from query service")
	}
	structural := learndb.IsStructural(sql)
	if sameSession {
		if structural {
			c.schemaGen++
		}
		c.commit(queryExecuted(c.state, sql, res, c.now(), c.limit, current), realtime.EventQueryExecuted)
	} else {
		c.commit(c.state, realtime.EventQueryExecuted)
	}
	c.mu.Unlock()

	c.log.Debug("query executed", "session_id", id, "sql", sql, "success", res.Success, "rows", res.RowCount, "stale", !current)
	if structural && sameSession {
		if rerr := c.RefreshSchema(ctx); rerr != nil {
			c.log.Debug("schema refresh after structural statement failed", "session_id", id, "error", rerr)
		}
	}
	return res.Clone(), nil
}

// ExecuteCurrent runs the editor buffer.
func (c *Controller) ExecuteCurrent(ctx context.Context) (*learndb.QueryResult, error) {
	return c.ExecuteQuery(ctx, c.Snapshot().CurrentQuery)
}

// RefreshSchema replaces the cached tables with a fresh snapshot. Without a
// session it returns ErrNoSession silently. Concurrent refreshes for the same
// schema generation share one remote call; a failure keeps the stale tables.
func (c *Controller) RefreshSchema(ctx context.Context) error {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	id := c.state.SessionID()
	gen := c.schemaGen
	c.mu.Unlock()
	if id == "" {
		return pkgerrors.ErrNoSession
	}

	key := fmt.Sprintf("%s/%d", id, gen)
	_, err, _ := c.refreshes.Do(key, func() (any, error) {
		return nil, c.refreshSchema(ctx, id, gen)
	})
	return err
}

func (c *Controller) refreshSchema(ctx context.Context, id string, gen uint64) error {
	c.beginLoading()
	tables, err := c.gw.ListTables(ctx, id)
	if err != nil {
		c.log.Warn("schema refresh failed", "op", "ListTables", "session_id", id, "error", err)
		c.endLoading(realtime.EventSchemaRefreshed, func(s State) State {
			if s.SessionID() != id || gen < c.appliedGen {
				return s
			}
			return schemaRefreshFailed(s, fmt.Sprintf("failed to load schema: %v", err))
		})
		return err
	}
	c.endLoading(realtime.EventSchemaRefreshed, func(s State) State {
		if s.SessionID() != id || gen < c.appliedGen {
			return s
		}
		c.appliedGen = gen
		next := schemaRefreshed(s, tables, c.now())
		if gen < c.schemaGen {
			next.SchemaStale = true
		}
		return next
	})
	return nil
}

// ResetDatabase wipes the sandbox and, on success, clears the local tables,
// result and history.
func (c *Controller) ResetDatabase(ctx context.Context) error {
	ctx = ctxutil.Detached(ctx)
	c.mu.Lock()
	id := c.state.SessionID()
	if id == "" {
		c.commit(failed(c.state, "no active session"), realtime.EventSessionChanged)
		c.mu.Unlock()
		return pkgerrors.ErrNoSession
	}
	c.loading++
	c.commit(c.state, realtime.EventSessionChanged)
	c.mu.Unlock()

	if err := c.gw.ResetSession(ctx, id); err != nil {
		c.log.Warn("reset database failed", "op", "ResetSession", "session_id", id, "error", err)
		c.endLoading(realtime.EventSessionChanged, func(s State) State {
			return failed(s, fmt.Sprintf("failed to reset database: %v", err))
		})
		return err
	}
	c.endLoading(realtime.EventDatabaseReset, func(s State) State {
		if s.SessionID() != id {
			return s
		}
		c.schemaGen++
		c.appliedGen = c.schemaGen
		return databaseReset(s, c.now())
	})
	c.log.Info("database reset", "session_id", id)
	return nil
}

// PreviewTable fetches up to limit rows of table. limit is clamped to
// [1, MaxPreviewLimit]; zero means DefaultPreviewLimit.
func (c *Controller) PreviewTable(ctx context.Context, table string, limit int) (*learndb.TablePreview, error) {
	ctx = ctxutil.Detached(ctx)
	id := c.Snapshot().SessionID()
	if id == "" {
		return nil, pkgerrors.ErrNoSession
	}
	switch {
	case limit == 0:
		limit = DefaultPreviewLimit
	case limit < 1:
		limit = 1
	case limit > MaxPreviewLimit:
		limit = MaxPreviewLimit
	}

	c.beginLoading()
	p, err := c.gw.PreviewTable(ctx, id, table, limit)
	if err != nil {
		c.log.Warn("table preview failed", "op", "PreviewTable", "session_id", id, "table", table, "error", err)
		c.endLoading(realtime.EventSessionChanged, func(s State) State {
			return failed(s, fmt.Sprintf("failed to preview %s: %v", table, err))
		})
		return nil, err
	}
	c.endLoading(realtime.EventTablePreviewed, func(s State) State {
		if s.SessionID() != id {
			return s
		}
		return previewLoaded(s, p)
	})
	return p.Clone(), nil
}
