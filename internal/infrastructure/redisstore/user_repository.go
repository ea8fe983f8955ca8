package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/domain/repository"
)

// emailIndexKey lives outside the "user:" namespace so document scans never
// see it.
func emailIndexKey(email string) string { return "idx:user:email:" + email }

// UserRepository keeps a unique email -> id index next to the user documents.
type UserRepository struct {
	*Repository[*entity.User]
}

func NewUserRepository(store *Store, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		Repository: NewRepository(store, func() *entity.User { return &entity.User{} }, logger),
	}
}

// Create reserves the email in the index before writing the document, so two
// concurrent registrations of one address cannot both succeed. The reserved
// id is burned when the email is taken; ids are never reused anyway.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	id, err := r.NextID(ctx)
	if err != nil {
		return u, err
	}
	idxKey := emailIndexKey(u.Email)
	ok, err := r.store.SetNX(ctx, idxKey, strconv.FormatInt(id, 10), 0)
	if err != nil {
		return u, err
	}
	if !ok {
		return u, fmt.Errorf("%w: email %q", repository.ErrDuplicate, u.Email)
	}
	created, err := r.Insert(ctx, id, u)
	if err != nil {
		if _, derr := r.store.Delete(ctx, idxKey); derr != nil && r.logger != nil {
			r.logger.WithError(derr).WithField("key", idxKey).Error("release email index failed")
		}
		return created, err
	}
	return created, nil
}

// FindByEmail resolves through the index. Index entries whose document is gone
// are treated as absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	raw, err := r.store.GetString(ctx, emailIndexKey(email))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, repository.ErrNotFound
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: email index %q: %v", ErrCorrupt, email, err)
	}
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Email != email {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// Delete drops the document and its email index entry.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := r.store.Delete(ctx, emailIndexKey(u.Email)); err != nil {
		return false, err
	}
	return r.Repository.Delete(ctx, id)
}

var _ repository.UserRepository = (*UserRepository)(nil)
var _ repository.EntityRepository[*entity.Task] = (*Repository[*entity.Task])(nil)
