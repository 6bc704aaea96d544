package settings

import (
	"errors"
	"fmt"
)

// Errors returned by the resolvers. Callers match them with errors.Is.
var (
	// ErrNotEditable is returned when a write targets a key that is absent from
	// the defaults document or marked non-editable there.
	ErrNotEditable = errors.New("setting is not editable")

	// ErrProjectScoped is returned when a global write targets a key that only
	// exists per project.
	ErrProjectScoped = errors.New("setting is project scoped")

	// ErrNotProjectScoped is returned when a project write targets a key that
	// only exists globally.
	ErrNotProjectScoped = errors.New("setting is not project scoped")

	// ErrInvalidValue is returned when a value does not match the item's kind.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrSerialization is returned when a value cannot be encoded for storage.
	ErrSerialization = errors.New("setting value cannot be serialized")

	// ErrPersistence wraps failures of the underlying override store.
	ErrPersistence = errors.New("settings persistence failed")

	// ErrConfigAbsent is returned when a requested key has neither an override
	// nor a default.
	ErrConfigAbsent = errors.New("setting not found")

	// ErrKeyConflict is returned when one key is both a value and a parent of
	// another key.
	ErrKeyConflict = errors.New("setting key conflicts with another key")

	// ErrInvalidDefaults is returned when the defaults document cannot be used.
	ErrInvalidDefaults = errors.New("invalid defaults document")
)

// KeyError records a failed operation on a single configuration key.
type KeyError struct {
	Key string
	Op  string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func keyError(op, key string, err error) error {
	return &KeyError{Key: key, Op: op, Err: err}
}
