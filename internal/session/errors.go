package session

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingPayload  = errors.New("missing payload")
	ErrNotMaterialized = errors.New("exercise has no edited files")
)

// PersistenceCorruptError wraps a snapshot that could not be decoded.
type PersistenceCorruptError struct {
	Key string
	Err error
}

func (e *PersistenceCorruptError) Error() string {
	return fmt.Sprintf("persisted state %q is corrupt: %v", e.Key, e.Err)
}

func (e *PersistenceCorruptError) Unwrap() error {
	return e.Err
}
