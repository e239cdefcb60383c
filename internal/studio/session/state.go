package session

import (
	"time"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

// Ordering decides which of several overlapping executions owns LastResult.
type Ordering int

const (
	// LatestDispatch keeps the result of the most recently started execution
	// and discards late results of older ones.
	LatestDispatch Ordering = iota
	// LatestCompletion keeps whichever execution finished last.
	LatestCompletion
)

func ParseOrdering(s string) (Ordering, bool) {
	switch s {
	case "", "latest_dispatch":
		return LatestDispatch, true
	case "latest_completion":
		return LatestCompletion, true
	}
	return LatestDispatch, false
}

// State is an immutable snapshot of the session controller. Values returned
// from Snapshot share nothing with the controller.
type State struct {
	Session          *learndb.Session           `json:"session"`
	CurrentQuery     string                     `json:"current_query"`
	LastResult       *learndb.QueryResult       `json:"last_result"`
	History          []learndb.QueryHistoryItem `json:"history"`
	Tables           []learndb.Table            `json:"tables"`
	SchemaVerifiedAt *time.Time                 `json:"schema_verified_at,omitempty"`
	SchemaStale      bool                       `json:"schema_stale"`
	Preview          *learndb.TablePreview      `json:"preview,omitempty"`
	IsLoading        bool                       `json:"is_loading"`
	IsExecuting      bool                       `json:"is_executing"`
	Error            string                     `json:"error,omitempty"`
}

// SessionID returns the active session id or "".
func (s State) SessionID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.ID
}

func (s State) HasSession() bool { return s.Session != nil }

func (s State) clone() State {
	out := s
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	if s.SchemaVerifiedAt != nil {
		at := *s.SchemaVerifiedAt
		out.SchemaVerifiedAt = &at
	}
	out.LastResult = s.LastResult.Clone()
	out.History = append([]learndb.QueryHistoryItem(nil), s.History...)
	out.Tables = learndb.CloneTables(s.Tables)
	out.Preview = s.Preview.Clone()
	return out
}
