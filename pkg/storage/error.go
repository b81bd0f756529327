package storage

import "errors"

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with a unique value.
var ErrConflict = errors.New("conflict")

// NotFoundError is returned when an entity doesn't exist in the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}

	return e.Kind + " not found: " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
