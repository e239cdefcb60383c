package bus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/learndb-studio/internal/platform/logger"
	"github.com/yungbote/learndb-studio/internal/realtime"
)

const relayBuffer = 256

// Relay publishes locally through a Publisher and copies every message onto
// a Bus. Messages coming back from the bus are delivered locally only when
// another process produced them.
type Relay struct {
	local  realtime.Publisher
	bus    Bus
	origin string
	log    *logger.Logger
	out    chan realtime.Message
}

var _ realtime.Publisher = (*Relay)(nil)

func NewRelay(local realtime.Publisher, b Bus, log *logger.Logger) *Relay {
	return &Relay{
		local:  local,
		bus:    b,
		origin: uuid.NewString(),
		log:    log.With("component", "RealtimeRelay"),
		out:    make(chan realtime.Message, relayBuffer),
	}
}

func (r *Relay) Origin() string { return r.origin }

// Publish never blocks; if the outgoing queue is full the bus copy is
// dropped but local delivery still happens.
func (r *Relay) Publish(msg realtime.Message) {
	r.local.Publish(msg)
	msg.Origin = r.origin
	select {
	case r.out <- msg:
	default:
		r.log.Warn("relay queue full; dropping bus copy", "event", msg.Event)
	}
}

// Run starts the forwarder and drains the outgoing queue until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	err := r.bus.StartForwarder(ctx, func(m realtime.Message) {
		if m.Origin == r.origin {
			return
		}
		r.local.Publish(m)
	})
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-r.out:
			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := r.bus.Publish(pubCtx, msg); err != nil {
				r.log.Warn("bus publish failed", "event", msg.Event, "error", err)
			}
			cancel()
		}
	}
}

// Close releases the underlying bus.
func (r *Relay) Close() error {
	return r.bus.Close()
}
