package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by all backends. Callers match them with errors.Is
// through the *StorageError wrapper.
var (
	ErrNotFound     = errors.New("object not found")
	ErrKeyExists    = errors.New("object already exists at this key")
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrTooLarge     = errors.New("object exceeds maximum size")
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidContentType marks an upload whose MIME type is not in the
	// allowed set for its destination (e.g. a PDF sent as an observation
	// photo).
	ErrInvalidContentType = errors.New("content type not allowed")
)

// StorageError carries the operation and key alongside the underlying cause.
type StorageError struct {
	Op  string // "Put", "Get", "Delete", "URL", "Exists"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// opError wraps err with operation context, passing nil through.
func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

// checkKey rejects empty keys and anything that could climb out of the
// bucket or base directory. Both backends apply it before touching the key.
func checkKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
