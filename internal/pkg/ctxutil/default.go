package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached keeps ctx's values (request id, span) but drops its cancellation
// and deadline. Work started on behalf of a caller that may go away runs on it.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(Default(ctx))
}
