package session

import (
	"time"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

// Transitions below are pure: each takes the previous state plus an
// operation outcome and returns the next state without touching its input.

func sessionCreated(s State, sess learndb.Session) State {
	next := s.clone()
	next.Session = &sess
	next.SchemaStale = true
	next.Preview = nil
	next.Error = ""
	return next
}

func sessionDeleted(s State) State {
	next := s.clone()
	next.Session = nil
	next.LastResult = nil
	next.History = nil
	next.Tables = nil
	next.SchemaVerifiedAt = nil
	next.SchemaStale = false
	next.Preview = nil
	next.Error = ""
	return next
}

func failed(s State, msg string) State {
	next := s.clone()
	next.Error = msg
	return next
}

func queryTextChanged(s State, text string) State {
	next := s.clone()
	next.CurrentQuery = text
	next.Error = ""
	return next
}

// queryExecuted records a completed execution. current is false when a newer
// execution has been dispatched since this one started; the history entry is
// kept either way.
func queryExecuted(s State, sql string, res *learndb.QueryResult, at time.Time, limit int, current bool) State {
	next := s.clone()
	next.History = learndb.PrependHistory(s.History, learndb.NewHistoryItem(sql, res, at), limit)
	if learndb.IsStructural(sql) {
		next.SchemaStale = true
	}
	if current {
		next.LastResult = res.Clone()
		next.Error = ""
	}
	return next
}

// queryFailed applies a transport failure. The synthesized result keeps
// LastResult well formed.
func queryFailed(s State, res *learndb.QueryResult, current bool) State {
	if !current {
		return s.clone()
	}
	next := s.clone()
	next.LastResult = res.Clone()
	next.Error = res.ErrorMessage
	return next
}

func schemaRefreshed(s State, tables []learndb.Table, at time.Time) State {
	next := s.clone()
	next.Tables = learndb.CloneTables(tables)
	if next.Tables == nil {
		next.Tables = []learndb.Table{}
	}
	next.SchemaVerifiedAt = &at
	next.SchemaStale = false
	next.Error = ""
	return next
}

// schemaRefreshFailed keeps the stale tables and marks them as such.
func schemaRefreshFailed(s State, msg string) State {
	next := s.clone()
	next.SchemaStale = true
	next.Error = msg
	return next
}

func databaseReset(s State, at time.Time) State {
	next := s.clone()
	next.Tables = []learndb.Table{}
	next.LastResult = nil
	next.History = nil
	next.Preview = nil
	next.SchemaVerifiedAt = &at
	next.SchemaStale = false
	next.Error = ""
	return next
}

func previewLoaded(s State, p *learndb.TablePreview) State {
	next := s.clone()
	next.Preview = p.Clone()
	next.Error = ""
	return next
}

func withFlags(s State, loading, executing int) State {
	s.IsLoading = loading > 0
	s.IsExecuting = executing > 0
	return s
}
