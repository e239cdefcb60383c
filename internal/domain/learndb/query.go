package learndb

import (
	"strings"
	"time"
)

// QueryResult is the outcome of one executed statement. Remote SQL errors
// arrive here with Success=false; they are data, not transport failures.
type QueryResult struct {
	Success         bool             `json:"success"`
	Rows            []map[string]any `json:"rows"`
	Columns         []string         `json:"columns"`
	RowCount        int              `json:"row_count"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}

// FailedResult builds the result reported when the statement never reached
// the engine.
func FailedResult(msg string) *QueryResult {
	return &QueryResult{
		Success:      false,
		Rows:         []map[string]any{},
		Columns:      []string{},
		ErrorMessage: msg,
	}
}

func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Columns = append([]string(nil), r.Columns...)
	out.Rows = cloneRows(r.Rows)
	return &out
}

type QueryHistoryItem struct {
	SQL             string    `json:"sql"`
	Timestamp       time.Time `json:"timestamp"`
	Success         bool      `json:"success"`
	ExecutionTimeMS float64   `json:"execution_time_ms"`
	RowCount        int       `json:"row_count"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// NewHistoryItem records the execution of sql that produced r.
func NewHistoryItem(sql string, r *QueryResult, at time.Time) QueryHistoryItem {
	item := QueryHistoryItem{SQL: sql, Timestamp: at}
	if r != nil {
		item.Success = r.Success
		item.ExecutionTimeMS = r.ExecutionTimeMS
		item.RowCount = r.RowCount
		item.ErrorMessage = r.ErrorMessage
	}
	return item
}

// PrependHistory returns a new slice with item first, truncated to limit.
// The input slice is not modified.
func PrependHistory(history []QueryHistoryItem, item QueryHistoryItem, limit int) []QueryHistoryItem {
	n := len(history) + 1
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]QueryHistoryItem, 0, n)
	out = append(out, item)
	for _, h := range history {
		if len(out) == n {
			break
		}
		out = append(out, h)
	}
	return out
}

var structuralKeywords = []string{"create", "drop"}

// IsStructural reports whether sql may change the schema catalog.
func IsStructural(sql string) bool {
	s := strings.ToLower(strings.TrimSpace(sql))
	for _, kw := range structuralKeywords {
		if strings.HasPrefix(s, kw) {
			return true
		}
	}
	return false
}

func cloneRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
