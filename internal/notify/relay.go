package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Publisher ships an encoded event to an external broker.
type Publisher interface {
	PublishRaw(ctx context.Context, typ string, body []byte) error
}

// Relay forwards every event of a live feed to a Publisher. It inherits the
// feed's at-most-once delivery: events published while the relay is down are
// not forwarded.
type Relay struct {
	Feed   *Feed
	Out    Publisher
	Logger *logrus.Logger
}

// Run relays until ctx is done. A failed publish is logged and the event is
// dropped; it returns the number of events forwarded.
func (r *Relay) Run(ctx context.Context) (int, error) {
	forwarded := 0
	for {
		ev, ok := r.Feed.Next(ctx)
		if !ok {
			return forwarded, ctx.Err()
		}
		body, err := json.Marshal(ev)
		if err != nil {
			return forwarded, fmt.Errorf("encode %s: %w", ev.Type, err)
		}
		if err := r.Out.PublishRaw(ctx, ev.Type, body); err != nil {
			if r.Logger != nil {
				r.Logger.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "entity_id": ev.EntityID}).Warn("relay publish failed")
			}
			continue
		}
		forwarded++
	}
}
