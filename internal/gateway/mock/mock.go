// Package mock is an in-memory LearnDB used by tests and by the studio's
// offline mode. It understands just enough DDL to keep a schema catalog.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/gateway"
)

// Challenge is a gradeable challenge. A submission passes when its
// normalized text equals Solution.
type Challenge struct {
	Detail   learndb.ChallengeDetail
	Hints    []string
	Solution string
}

// Hook runs at the start of an operation. A non-nil error is returned to the
// caller instead of the normal result.
type Hook func(ctx context.Context) error

type Gateway struct {
	mu         sync.Mutex
	sessions   map[string]*sandbox
	challenges map[string]Challenge
	categories []learndb.CategoryID
	hooks      map[string]Hook
	calls      map[string]int
	now        func() time.Time
}

type sandbox struct {
	session learndb.Session
	tables  map[string]learndb.Table
	order   []string
	history []learndb.QueryHistoryItem
}

var _ gateway.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		sessions:   map[string]*sandbox{},
		challenges: map[string]Challenge{},
		hooks:      map[string]Hook{},
		calls:      map[string]int{},
		now:        time.Now,
	}
}

// AddChallenge registers c; categories keep first-seen order.
func (g *Gateway) AddChallenge(c Challenge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.Detail.HintsCount = len(c.Hints)
	if _, ok := g.challenges[c.Detail.ID]; !ok {
		seen := false
		for _, cat := range g.categories {
			if cat == c.Detail.Category {
				seen = true
			}
		}
		if !seen {
			g.categories = append(g.categories, c.Detail.Category)
		}
	}
	g.challenges[c.Detail.ID] = c
}

// SetHook installs fn for op (the Gateway method name). nil removes it.
func (g *Gateway) SetHook(op string, fn Hook) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fn == nil {
		delete(g.hooks, op)
		return
	}
	g.hooks[op] = fn
}

// Fail makes every call to op return err.
func (g *Gateway) Fail(op string, err error) {
	g.SetHook(op, func(context.Context) error { return err })
}

func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) enter(ctx context.Context, op string) error {
	g.mu.Lock()
	g.calls[op]++
	hook := g.hooks[op]
	g.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func notFound(format string, args ...any) error {
	return &gateway.HTTPError{StatusCode: http.StatusNotFound, Detail: fmt.Sprintf(format, args...)}
}

func (g *Gateway) sandbox(id string) (*sandbox, error) {
	sb, ok := g.sessions[id]
	if !ok {
		return nil, notFound("Session not found: %s", id)
	}
	return sb, nil
}

func (g *Gateway) CreateSession(ctx context.Context) (learndb.Session, error) {
	if err := g.enter(ctx, "CreateSession"); err != nil {
		return learndb.Session{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	s := learndb.Session{ID: uuid.NewString(), CreatedAt: now, LastActivityAt: now, Mode: learndb.ModeSandbox}
	g.sessions[s.ID] = &sandbox{session: s, tables: map[string]learndb.Table{}}
	return s, nil
}

func (g *Gateway) GetSession(ctx context.Context, sessionID string) (learndb.Session, error) {
	if err := g.enter(ctx, "GetSession"); err != nil {
		return learndb.Session{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return learndb.Session{}, err
	}
	return sb.session, nil
}

func (g *Gateway) DeleteSession(ctx context.Context, sessionID string) error {
	if err := g.enter(ctx, "DeleteSession"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.sandbox(sessionID); err != nil {
		return err
	}
	delete(g.sessions, sessionID)
	return nil
}

func (g *Gateway) ResetSession(ctx context.Context, sessionID string) error {
	if err := g.enter(ctx, "ResetSession"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return err
	}
	sb.tables = map[string]learndb.Table{}
	sb.order = nil
	sb.history = nil
	return nil
}

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*create\s+table\s+(?:if\s+not\s+exists\s+)?(\w+)\s*\((.*)\)\s*;?\s*$`)
	dropTableRe   = regexp.MustCompile(`(?is)^\s*drop\s+table\s+(?:if\s+exists\s+)?(\w+)\s*;?\s*$`)
)

func (g *Gateway) ExecuteQuery(ctx context.Context, sessionID, sql string) (*learndb.QueryResult, error) {
	if err := g.enter(ctx, "ExecuteQuery"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return nil, err
	}
	res := sb.apply(sql)
	sb.session.LastActivityAt = g.now()
	sb.history = learndb.PrependHistory(sb.history, learndb.NewHistoryItem(sql, res, g.now()), 100)
	return res, nil
}

func (sb *sandbox) apply(sql string) *learndb.QueryResult {
	if m := createTableRe.FindStringSubmatch(sql); m != nil {
		name := m[1]
		if _, exists := sb.tables[name]; exists {
			return learndb.FailedResult(fmt.Sprintf("table %s already exists", name))
		}
		sb.tables[name] = learndb.Table{Name: name, SQLText: strings.TrimSpace(sql), Columns: parseColumns(m[2])}
		sb.order = append(sb.order, name)
		return &learndb.QueryResult{Success: true, Rows: []map[string]any{}, Columns: []string{}}
	}
	if m := dropTableRe.FindStringSubmatch(sql); m != nil {
		name := m[1]
		if _, exists := sb.tables[name]; !exists {
			return learndb.FailedResult(fmt.Sprintf("no such table: %s", name))
		}
		delete(sb.tables, name)
		for i, n := range sb.order {
			if n == name {
				sb.order = append(sb.order[:i], sb.order[i+1:]...)
				break
			}
		}
		return &learndb.QueryResult{Success: true, Rows: []map[string]any{}, Columns: []string{}}
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select") {
		return &learndb.QueryResult{
			Success:  true,
			Rows:     []map[string]any{{"result": 1}},
			Columns:  []string{"result"},
			RowCount: 1,
		}
	}
	return &learndb.QueryResult{Success: true, Rows: []map[string]any{}, Columns: []string{}}
}

func parseColumns(defs string) []learndb.Column {
	var cols []learndb.Column
	for _, raw := range strings.Split(defs, ",") {
		fields := strings.Fields(raw)
		if len(fields) < 2 {
			continue
		}
		upper := strings.ToUpper(raw)
		pk := strings.Contains(upper, "PRIMARY KEY")
		cols = append(cols, learndb.Column{
			Name:         fields[0],
			Datatype:     strings.ToUpper(fields[1]),
			IsPrimaryKey: pk,
			IsNullable:   !pk && !strings.Contains(upper, "NOT NULL"),
		})
	}
	return cols
}

func (g *Gateway) QueryHistory(ctx context.Context, sessionID string) ([]learndb.QueryHistoryItem, error) {
	if err := g.enter(ctx, "QueryHistory"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return nil, err
	}
	return append([]learndb.QueryHistoryItem(nil), sb.history...), nil
}

func (g *Gateway) ListTables(ctx context.Context, sessionID string) ([]learndb.Table, error) {
	if err := g.enter(ctx, "ListTables"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]learndb.Table, 0, len(sb.order))
	for _, name := range sb.order {
		out = append(out, sb.tables[name])
	}
	return learndb.CloneTables(out), nil
}

func (g *Gateway) GetTable(ctx context.Context, sessionID, table string) (learndb.Table, error) {
	if err := g.enter(ctx, "GetTable"); err != nil {
		return learndb.Table{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return learndb.Table{}, err
	}
	t, ok := sb.tables[table]
	if !ok {
		return learndb.Table{}, notFound("Table not found: %s", table)
	}
	return learndb.CloneTables([]learndb.Table{t})[0], nil
}

func (g *Gateway) PreviewTable(ctx context.Context, sessionID, table string, limit int) (*learndb.TablePreview, error) {
	if err := g.enter(ctx, "PreviewTable"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return nil, err
	}
	t, ok := sb.tables[table]
	if !ok {
		return nil, notFound("Table not found: %s", table)
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}
	return &learndb.TablePreview{TableName: t.Name, Columns: cols, Rows: []map[string]any{}, Success: true}, nil
}

func (g *Gateway) ListChallenges(ctx context.Context) (learndb.Catalog, error) {
	if err := g.enter(ctx, "ListChallenges"); err != nil {
		return learndb.Catalog{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	byCat := map[learndb.CategoryID][]learndb.ChallengeListItem{}
	for _, c := range g.challenges {
		d := c.Detail
		byCat[d.Category] = append(byCat[d.Category], learndb.ChallengeListItem{
			ID: d.ID, Title: d.Title, Difficulty: d.Difficulty, XPReward: d.XPReward,
		})
	}
	out := learndb.Catalog{TotalCount: len(g.challenges)}
	for _, cat := range g.categories {
		items := byCat[cat]
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		out.Categories = append(out.Categories, learndb.Category{
			Name:        cat,
			DisplayName: strings.ReplaceAll(string(cat), "_", " "),
			Challenges:  items,
		})
	}
	return out, nil
}

func (g *Gateway) GetChallenge(ctx context.Context, challengeID string) (*learndb.ChallengeDetail, error) {
	if err := g.enter(ctx, "GetChallenge"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.challenges[challengeID]
	if !ok {
		return nil, notFound("Challenge not found: %s", challengeID)
	}
	return c.Detail.Clone(), nil
}

func (g *Gateway) SetupChallenge(ctx context.Context, challengeID, sessionID string) error {
	if err := g.enter(ctx, "SetupChallenge"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.challenges[challengeID]; !ok {
		return notFound("Challenge not found: %s", challengeID)
	}
	sb, err := g.sandbox(sessionID)
	if err != nil {
		return err
	}
	sb.session.Mode = learndb.ModeChallenge
	return nil
}

func (g *Gateway) SubmitChallenge(ctx context.Context, challengeID, sessionID, sql string, hintsUsed int) (*learndb.SubmissionResult, error) {
	if err := g.enter(ctx, "SubmitChallenge"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.challenges[challengeID]
	if !ok {
		return nil, notFound("Challenge not found: %s", challengeID)
	}
	if _, err := g.sandbox(sessionID); err != nil {
		return nil, err
	}
	if normalize(sql) != normalize(c.Solution) {
		return &learndb.SubmissionResult{Success: true, Passed: false, Feedback: "Output does not match expected result"}, nil
	}
	return &learndb.SubmissionResult{
		Success:  true,
		Passed:   true,
		Feedback: "Output matches expected",
		XPEarned: Award(c.Detail.XPReward, hintsUsed),
	}, nil
}

// Award applies the service's hint penalty: 5 points per hint, never below
// a quarter of the reward.
func Award(reward, hintsUsed int) int {
	xp := reward - hintsUsed*5
	if floor := reward / 4; xp < floor {
		xp = floor
	}
	return xp
}

func (g *Gateway) GetHint(ctx context.Context, challengeID string, index int) (learndb.Hint, error) {
	if err := g.enter(ctx, "GetHint"); err != nil {
		return learndb.Hint{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.challenges[challengeID]
	if !ok {
		return learndb.Hint{}, notFound("Challenge not found: %s", challengeID)
	}
	if index < 0 || index >= len(c.Hints) {
		return learndb.Hint{}, notFound("Hint not found")
	}
	return learndb.Hint{Index: index, Text: c.Hints[index], Remaining: len(c.Hints) - index - 1}, nil
}

func (g *Gateway) Health(ctx context.Context) (gateway.Health, error) {
	if err := g.enter(ctx, "Health"); err != nil {
		return gateway.Health{}, err
	}
	return gateway.Health{Status: "healthy", Service: "learndb-mock"}, nil
}

func (g *Gateway) Info(ctx context.Context) (gateway.Info, error) {
	if err := g.enter(ctx, "Info"); err != nil {
		return gateway.Info{}, err
	}
	return gateway.Info{Name: "learndb-mock", Version: "0.0.0", Features: []string{"sandbox", "challenges"}}, nil
}

func normalize(sql string) string {
	s := strings.ToLower(strings.Join(strings.Fields(sql), " "))
	return strings.TrimSuffix(s, ";")
}
