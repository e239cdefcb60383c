// Package gateway is the transport boundary to the LearnDB service.
// Every operation returns either a value or an error; nothing panics across
// the boundary.
package gateway

import (
	"context"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

type Sessions interface {
	CreateSession(ctx context.Context) (learndb.Session, error)
	GetSession(ctx context.Context, sessionID string) (learndb.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) error
}

type Queries interface {
	ExecuteQuery(ctx context.Context, sessionID, sql string) (*learndb.QueryResult, error)
	QueryHistory(ctx context.Context, sessionID string) ([]learndb.QueryHistoryItem, error)
}

type Schema interface {
	ListTables(ctx context.Context, sessionID string) ([]learndb.Table, error)
	GetTable(ctx context.Context, sessionID, table string) (learndb.Table, error)
	PreviewTable(ctx context.Context, sessionID, table string, limit int) (*learndb.TablePreview, error)
}

type Challenges interface {
	ListChallenges(ctx context.Context) (learndb.Catalog, error)
	GetChallenge(ctx context.Context, challengeID string) (*learndb.ChallengeDetail, error)
	SetupChallenge(ctx context.Context, challengeID, sessionID string) error
	SubmitChallenge(ctx context.Context, challengeID, sessionID, sql string, hintsUsed int) (*learndb.SubmissionResult, error)
	GetHint(ctx context.Context, challengeID string, index int) (learndb.Hint, error)
}

type Diagnostics interface {
	Health(ctx context.Context) (Health, error)
	Info(ctx context.Context) (Info, error)
}

// Gateway is the full LearnDB surface.
type Gateway interface {
	Sessions
	Queries
	Schema
	Challenges
	Diagnostics
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}
