package memo

import (
	"errors"
	"fmt"
)

// ErrStorage is matched by every *StorageError via errors.Is.
var ErrStorage = errors.New("memo: storage failure")

// StorageError reports a failure of the backing store: an unreadable or
// corrupt file, a failed write, or a stored entry that cannot be decoded.
type StorageError struct {
	Op   string // open, get, set, decode, close, check
	Path string // store location, empty for in-memory stores
	Key  string // cache key, when the failure concerns one entry
	Err  error
}

func (e *StorageError) Error() string {
	msg := "memo: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" key %q", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
