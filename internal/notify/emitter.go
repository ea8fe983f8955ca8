package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
)

// Emitter records events in the audit stream and publishes them on the live
// channel of their kind.
type Emitter struct {
	store  *redisstore.Store
	logger *logrus.Logger
}

func NewEmitter(store *redisstore.Store, logger *logrus.Logger) *Emitter {
	return &Emitter{store: store, logger: logger}
}

// Emit appends ev to the stream and then publishes it. A failed append does
// not stop the publish; both errors are returned joined.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	var errs []error
	kind := kindOf(ev)

	if _, err := e.store.AppendToStream(ctx, Stream(kind), AuditFields(ev)); err != nil {
		errs = append(errs, fmt.Errorf("audit %s: %w", ev.Type, err))
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		errs = append(errs, fmt.Errorf("encode %s: %w", ev.Type, err))
		return errors.Join(errs...)
	}
	if err := e.store.Publish(ctx, Channel(kind, ev.Action), payload); err != nil {
		errs = append(errs, fmt.Errorf("publish %s: %w", ev.Type, err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{"event": ev.Type, "entity_id": ev.EntityID, "user_id": ev.UserID}).Debug("change emitted")
	}
	return nil
}

// AuditOnly appends ev to the stream without a live notification.
func (e *Emitter) AuditOnly(ctx context.Context, ev Event) error {
	if _, err := e.store.AppendToStream(ctx, Stream(kindOf(ev)), AuditFields(ev)); err != nil {
		return fmt.Errorf("audit %s: %w", ev.Type, err)
	}
	return nil
}

// History returns up to limit audit entries of kind, oldest first.
func (e *Emitter) History(ctx context.Context, kind entity.Kind, limit int64) ([]redisstore.StreamEvent, error) {
	return e.store.RangeStream(ctx, Stream(kind), "-", "+", limit)
}

func kindOf(ev Event) entity.Kind {
	if ev.Kind == entity.KindUser.String() {
		return entity.KindUser
	}
	return entity.KindTask
}
