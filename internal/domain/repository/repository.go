package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("failed to persist document")
	ErrDuplicate   = errors.New("duplicate unique field")
	ErrNotNullable = errors.New("cannot be null")
)

// PatchError reports a partial update whose fields do not fit the entity
// schema: a wrong JSON type for a known field, or null for a field that has no
// null value. Field is set when the offending field is known.
type PatchError struct {
	Field string
	Err   error
}

func (e *PatchError) Error() string {
	if e.Field != "" {
		return "invalid patch: " + e.Field + " " + e.Err.Error()
	}
	return "invalid patch: " + e.Err.Error()
}
func (e *PatchError) Unwrap() error { return e.Err }

// EntityRepository is CRUD over one entity kind.
type EntityRepository[T entity.Entity] interface {
	Kind() entity.Kind
	Create(ctx context.Context, e T) (T, error)
	Get(ctx context.Context, id int64) (T, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListAll(ctx context.Context, id int64) ([]T, error)
	Update(ctx context.Context, id int64, patch map[string]any, fix func(prev, next T) error) (T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// UserRepository adds the email uniqueness index on top of CRUD.
type UserRepository interface {
	EntityRepository[*entity.User]
	// FindByEmail returns ErrNotFound when no user owns email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}
