// Package progress persists Progression between studio runs.
package progress

import (
	"context"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
)

type Store interface {
	// Load returns the stored progression, or an empty one if none exists.
	Load(ctx context.Context, profileID string) (learndb.Progression, error)
	Save(ctx context.Context, profileID string, p learndb.Progression) error
}
