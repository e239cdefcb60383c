package gateway

import (
	"strings"
	"time"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

type sessionResponse struct {
	SessionID      string `json:"session_id"`
	CreatedAt      string `json:"created_at"`
	LastActivityAt string `json:"last_activity_at"`
	CurrentMode    string `json:"current_mode"`
}

func (r sessionResponse) toDomain() learndb.Session {
	mode := learndb.SessionMode(strings.TrimSpace(r.CurrentMode))
	if mode == "" {
		mode = learndb.ModeSandbox
	}
	return learndb.Session{
		ID:             r.SessionID,
		CreatedAt:      parseTimestamp(r.CreatedAt),
		LastActivityAt: parseTimestamp(r.LastActivityAt),
		Mode:           mode,
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Success         bool             `json:"success"`
	Rows            []map[string]any `json:"rows"`
	Columns         []string         `json:"columns"`
	RowCount        int              `json:"row_count"`
	ErrorMessage    *string          `json:"error_message"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}

func (r queryResponse) toDomain() *learndb.QueryResult {
	out := &learndb.QueryResult{
		Success:         r.Success,
		Rows:            r.Rows,
		Columns:         r.Columns,
		RowCount:        r.RowCount,
		ExecutionTimeMS: r.ExecutionTimeMS,
	}
	if out.Rows == nil {
		out.Rows = []map[string]any{}
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if r.ErrorMessage != nil {
		out.ErrorMessage = *r.ErrorMessage
	}
	return out
}

type historyResponse struct {
	History []struct {
		SQL             string  `json:"sql"`
		Timestamp       string  `json:"timestamp"`
		Success         bool    `json:"success"`
		ExecutionTimeMS float64 `json:"execution_time_ms"`
		RowCount        int     `json:"row_count"`
		ErrorMessage    *string `json:"error_message"`
	} `json:"history"`
}

type schemaResponse struct {
	Tables []learndb.Table `json:"tables"`
}

type submitRequest struct {
	SQL       string `json:"sql"`
	HintsUsed int    `json:"hints_used"`
}

// timestampLayouts covers RFC 3339 and the zone-less ISO form the service emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
