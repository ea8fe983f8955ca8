package application

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	repo "github.com/oksasatya/redis-task-tracker/internal/domain/repository"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
)

// fields a patch can never change, so they are never reported as changes.
var fixedFields = map[string]bool{"id": true, "user_id": true, "created_at": true}

// OwnedService runs the operations of an owned kind on behalf of an explicit
// caller. Every read is scoped to the caller and every mutation checks
// ownership first.
type OwnedService[T entity.Owned] struct {
	Repo   repo.EntityRepository[T]
	Events *notify.Emitter
	Logger *logrus.Logger

	now func() time.Time
}

// TaskService is the task instantiation used by the HTTP layer and seeder.
type TaskService = OwnedService[*entity.Task]

func NewOwnedService[T entity.Owned](r repo.EntityRepository[T], events *notify.Emitter, logger *logrus.Logger) *OwnedService[T] {
	return &OwnedService[T]{Repo: r, Events: events, Logger: logger, now: time.Now}
}

func NewTaskService(r repo.EntityRepository[*entity.Task], events *notify.Emitter, logger *logrus.Logger) *TaskService {
	return NewOwnedService[*entity.Task](r, events, logger)
}

func (s *OwnedService[T]) Kind() entity.Kind { return s.Repo.Kind() }

// ListOwned returns the caller's entities, newest created_at first. Entities
// created in the same instant keep the higher id first.
func (s *OwnedService[T]) ListOwned(ctx context.Context, ident Identity) ([]T, error) {
	if !ident.Valid() {
		return nil, ErrUnauthenticated
	}
	all, err := s.Repo.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, e := range all {
		if e.OwnerID() == ident.UserID() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedTime(), out[j].CreatedTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].EntityID() > out[j].EntityID()
	})
	return out, nil
}

// GetOwned loads one entity of the caller.
func (s *OwnedService[T]) GetOwned(ctx context.Context, ident Identity, id int64) (T, error) {
	var zero T
	if !ident.Valid() {
		return zero, ErrUnauthenticated
	}
	e, err := s.Repo.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if e.OwnerID() != ident.UserID() {
		return zero, ErrForbidden
	}
	return e, nil
}

// CreateOwned validates e, stamps the caller as owner and persists it.
func (s *OwnedService[T]) CreateOwned(ctx context.Context, ident Identity, e T) (T, error) {
	if !ident.Valid() {
		return e, ErrUnauthenticated
	}
	if err := checkStruct(e); err != nil {
		return e, err
	}
	e.SetOwner(ident.UserID())
	created, err := s.Repo.Create(ctx, e)
	if err != nil {
		return created, err
	}
	s.emit(ctx, notify.Created, created.EntityID(), ident.UserID(), created, nil)
	return created, nil
}

// UpdateOwned merges patch into the caller's entity. id, user_id and
// created_at in the patch are ignored whatever their value, and the merged
// entity must still validate. Concurrent updates of one entity are
// last-write-wins.
func (s *OwnedService[T]) UpdateOwned(ctx context.Context, ident Identity, id int64, patch map[string]any) error {
	if !ident.Valid() {
		return ErrUnauthenticated
	}
	patch = mutableFields(patch)
	if len(patch) == 0 {
		return &ValidationError{Fields: map[string]string{"payload": "no fields to update"}}
	}
	if _, err := s.GetOwned(ctx, ident, id); err != nil {
		return err
	}

	updated, err := s.Repo.Update(ctx, id, patch, func(prev, next T) error {
		if prev.OwnerID() != ident.UserID() {
			return ErrForbidden
		}
		next.SetOwner(prev.OwnerID())
		return checkStruct(next)
	})
	if err != nil {
		var pe *repo.PatchError
		if errors.As(err, &pe) {
			if pe.Field != "" {
				return &ValidationError{Fields: map[string]string{pe.Field: pe.Err.Error()}}
			}
			return invalid(pe)
		}
		return err
	}
	s.emit(ctx, notify.Updated, id, ident.UserID(), updated, changedFields(patch))
	return nil
}

// DeleteOwned removes the caller's entity. false means it vanished between the
// ownership check and the delete.
func (s *OwnedService[T]) DeleteOwned(ctx context.Context, ident Identity, id int64) (bool, error) {
	if !ident.Valid() {
		return false, ErrUnauthenticated
	}
	if _, err := s.GetOwned(ctx, ident, id); err != nil {
		return false, err
	}
	deleted, err := s.Repo.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}
	s.emit(ctx, notify.Deleted, id, ident.UserID(), nil, nil)
	return true, nil
}

// AuditEntry is one decoded record of the audit stream.
type AuditEntry struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	EntityID  int64     `json:"entity_id"`
	UserID    int64     `json:"user_id"`
	Changes   []string  `json:"changes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// History returns the caller's most recent audit entries, newest first.
func (s *OwnedService[T]) History(ctx context.Context, ident Identity, limit int) ([]AuditEntry, error) {
	if !ident.Valid() {
		return nil, ErrUnauthenticated
	}
	if s.Events == nil {
		return []AuditEntry{}, nil
	}
	raw, err := s.Events.History(ctx, s.Kind(), 0)
	if err != nil {
		return nil, err
	}
	uid := strconv.FormatInt(ident.UserID(), 10)
	idField := s.Kind().String() + "_id"
	out := make([]AuditEntry, 0)
	for i := len(raw) - 1; i >= 0; i-- {
		f := raw[i].Fields
		if f["user_id"] != uid {
			continue
		}
		entry := AuditEntry{ID: raw[i].ID, Event: f["event"], UserID: ident.UserID()}
		entry.EntityID, _ = strconv.ParseInt(f[idField], 10, 64)
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, f["timestamp"])
		if c, ok := f["changes"]; ok {
			entry.Changes = decodeChanges(c)
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// emit records and publishes a change. The mutation already happened, so a
// failure here is logged and not returned.
func (s *OwnedService[T]) emit(ctx context.Context, action notify.Action, id, uid int64, doc any, changes []string) {
	if s.Events == nil {
		return
	}
	ev, err := notify.NewEvent(s.Kind(), action, id, uid, doc, changes, s.now())
	if err == nil {
		err = s.Events.Emit(ctx, ev)
	}
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"event":     notify.EventType(s.Kind(), action),
			"entity_id": id,
			"user_id":   uid,
		}).Warn("change notification failed")
	}
}

func mutableFields(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if !fixedFields[k] {
			out[k] = v
		}
	}
	return out
}

func changedFields(patch map[string]any) []string {
	out := make([]string, 0, len(patch))
	for k := range patch {
		if !fixedFields[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func decodeChanges(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
