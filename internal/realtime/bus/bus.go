package bus

import (
	"context"

	"github.com/yungbote/learndb-studio/internal/realtime"
)

// Bus moves realtime messages between studio processes.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
