package store

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports a corrupt or structurally invalid store document.
	ErrFormat = errors.New("store: invalid document")
	// ErrNotFound reports a missing item id.
	ErrNotFound = errors.New("store: news item not found")
	// ErrAtomicWrite wraps failures of the temp-file and rename sequence.
	ErrAtomicWrite = errors.New("store: atomic write failed")
)

// FormatError describes why a document was rejected.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Path, e.Reason)
}

// Is matches ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Unwrap returns the decode error, if any.
func (e *FormatError) Unwrap() error { return e.Err }

// ErrCode is used as err_code in handler logs.
func (e *FormatError) ErrCode() string { return "store_format" }
