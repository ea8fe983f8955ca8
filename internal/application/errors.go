package application

import (
	"errors"
	"sort"
	"strings"

	repo "github.com/oksasatya/redis-task-tracker/internal/domain/repository"
	"github.com/oksasatya/redis-task-tracker/pkg/validation"
)

var (
	ErrNotFound        = repo.ErrNotFound
	ErrPersistence     = repo.ErrPersistence
	ErrConflict        = repo.ErrDuplicate
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed or missing input, field by field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// invalid wraps a validator or decoding error.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Fields: validation.ToDetails(err)}
}

// checkStruct runs binding-tag validation on v.
func checkStruct(v any) error {
	return invalid(validation.Struct(v))
}
