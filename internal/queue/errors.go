package queue

import (
	"errors"
	"fmt"
)

// ErrInvalidKind is returned by Append for a kind outside the accepted set.
var ErrInvalidKind = errors.New("queue: invalid event kind")

// StorageError reports that the persistence medium rejected an operation.
// The in-memory view was not updated and the operation had no effect; the
// caller decides whether to drop or surface the event.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("queue: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
