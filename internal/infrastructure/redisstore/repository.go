package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/domain/repository"
)

// immutable fields are restored from the stored document on every merge.
var immutableFields = []string{"id", "created_at"}

// Repository stores entities of one kind as JSON documents keyed
// "{kind}:{id}".
type Repository[T entity.Entity] struct {
	store  *Store
	kind   entity.Kind
	newFn  func() T
	logger *logrus.Logger
	now    func() time.Time
}

// NewRepository builds a repository for the kind produced by newFn.
func NewRepository[T entity.Entity](store *Store, newFn func() T, logger *logrus.Logger) *Repository[T] {
	return &Repository[T]{
		store:  store,
		kind:   newFn().Kind(),
		newFn:  newFn,
		logger: logger,
		now:    time.Now,
	}
}

// WithKind replaces the kind policy (namespace and TTL).
func (r *Repository[T]) WithKind(k entity.Kind) *Repository[T] {
	r.kind = k
	return r
}

func (r *Repository[T]) Kind() entity.Kind { return r.kind }

func (r *Repository[T]) key(id int64) string {
	return DocumentKey(r.kind.String(), id)
}

// NextID mints a fresh id from the kind counter.
func (r *Repository[T]) NextID(ctx context.Context) (int64, error) {
	return r.store.Increment(ctx, CounterKey(r.kind.String()))
}

// Create allocates an id for e, stamps it and persists the document.
func (r *Repository[T]) Create(ctx context.Context, e T) (T, error) {
	id, err := r.NextID(ctx)
	if err != nil {
		return e, err
	}
	return r.Insert(ctx, id, e)
}

// Insert persists e under an id previously obtained from NextID.
func (r *Repository[T]) Insert(ctx context.Context, id int64, e T) (T, error) {
	e.Assign(id, r.now())
	if err := r.store.Set(ctx, r.key(id), e, r.kind.TTL()); err != nil {
		return e, fmt.Errorf("%w: %w", repository.ErrPersistence, err)
	}
	return e, nil
}

// Get loads one entity.
func (r *Repository[T]) Get(ctx context.Context, id int64) (T, error) {
	e := r.newFn()
	found, err := r.store.Get(ctx, r.key(id), e)
	if err != nil {
		return e, err
	}
	if !found {
		return e, repository.ErrNotFound
	}
	return e, nil
}

func (r *Repository[T]) Exists(ctx context.Context, id int64) (bool, error) {
	return r.store.Exists(ctx, r.key(id))
}

// ListAll loads every entity of the kind, or only id when id > 0. Documents
// that fail to decode are skipped so one bad record cannot break a listing.
func (r *Repository[T]) ListAll(ctx context.Context, id int64) ([]T, error) {
	keys, err := r.store.ScanKeys(ctx, r.kind.String(), id)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		e := r.newFn()
		found, err := r.store.Get(ctx, k, e)
		if errors.Is(err, ErrCorrupt) {
			if r.logger != nil {
				r.logger.WithError(err).WithField("key", k).Warn("skipping corrupt document")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, e)
		}
	}
	return out, nil
}

// Update merges patch over the stored document and writes the result back,
// refreshing the kind TTL. Fields present in patch overwrite, others are kept;
// id and created_at can never change. fix, when given, sees the previous and
// merged values and may adjust or reject the merged one before it is written.
//
// The read-merge-write cycle is not transactional: two concurrent updates of
// the same document race and the last write wins.
func (r *Repository[T]) Update(ctx context.Context, id int64, patch map[string]any, fix func(prev, next T) error) (T, error) {
	key := r.key(id)
	var doc map[string]json.RawMessage
	found, err := r.store.Get(ctx, key, &doc)
	if err != nil {
		return r.newFn(), err
	}
	if !found {
		return r.newFn(), repository.ErrNotFound
	}

	prev := r.newFn()
	if err := decodeDocument(doc, prev); err != nil {
		return prev, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}

	merged := make(map[string]json.RawMessage, len(doc)+len(patch))
	for k, v := range doc {
		merged[k] = v
	}
	for k, v := range patch {
		b, err := json.Marshal(v)
		if err != nil {
			return prev, fmt.Errorf("%w: encode field %s: %v", ErrStore, k, err)
		}
		merged[k] = b
	}
	for _, f := range immutableFields {
		if v, ok := doc[f]; ok {
			merged[f] = v
		} else {
			delete(merged, f)
		}
	}

	next := r.newFn()
	if err := decodeDocument(merged, next); err != nil {
		return prev, &repository.PatchError{Err: err}
	}
	if err := checkNulls(patch, next); err != nil {
		return prev, err
	}
	if fix != nil {
		if err := fix(prev, next); err != nil {
			return prev, err
		}
	}
	if err := r.store.Set(ctx, key, next, r.kind.TTL()); err != nil {
		return prev, fmt.Errorf("%w: %w", repository.ErrPersistence, err)
	}
	return next, nil
}

// Delete removes the document; false when it did not exist.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	return r.store.Delete(ctx, r.key(id))
}

// checkNulls rejects a null patch value for any field that does not encode
// back to null, since decoding would otherwise reset it to its zero value.
// Pointer fields such as due_date accept null as "clear".
func checkNulls(patch map[string]any, e any) error {
	var nulls []string
	for k, v := range patch {
		if v == nil {
			nulls = append(nulls, k)
		}
	}
	if len(nulls) == 0 {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrStore, err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrStore, err)
	}
	sort.Strings(nulls)
	for _, k := range nulls {
		if raw, ok := doc[k]; ok && string(raw) != "null" {
			return &repository.PatchError{Field: k, Err: repository.ErrNotNullable}
		}
	}
	return nil
}

func decodeDocument(doc map[string]json.RawMessage, dest any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
