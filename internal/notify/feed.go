package notify

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
)

// Feed is a live subscription to the change channels of one kind.
type Feed struct {
	sub    *redisstore.Subscription
	logger *logrus.Logger
}

// Listen subscribes to every change channel of kind. Only events published
// after Listen returns are delivered.
func Listen(ctx context.Context, store *redisstore.Store, kind entity.Kind, logger *logrus.Logger) (*Feed, error) {
	sub, err := store.Subscribe(ctx, Channels(kind)...)
	if err != nil {
		return nil, err
	}
	return &Feed{sub: sub, logger: logger}, nil
}

// Next blocks for the next decodable event. Malformed payloads are skipped.
// ok=false once ctx is done or the subscription closed.
func (f *Feed) Next(ctx context.Context) (Event, bool) {
	for {
		channel, payload, ok := f.sub.Next(ctx)
		if !ok {
			return Event{}, false
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			if f.logger != nil {
				f.logger.WithError(err).WithField("channel", channel).Warn("dropping malformed change message")
			}
			continue
		}
		return ev, true
	}
}

func (f *Feed) Close() error { return f.sub.Close() }
