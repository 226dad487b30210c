// Package errs collects the distinct failure kinds surfaced by the index
// engine. Each is either a sentinel value usable with errors.Is, or a typed
// value usable with errors.As when it carries parameters.
package errs

import "fmt"

// errorType is a simple string-backed sentinel error, in the style of
// store/types.errorType in the storage stack this package is drawn from.
type errorType string

func (e errorType) Error() string {
	return string(e)
}

const (
	// ErrClosed is returned for any operation on a handle whose underlying
	// engine has already been closed.
	ErrClosed = errorType("hashindex: engine is closed")

	// ErrReadOnly is returned for a mutating operation on a read-only handle.
	ErrReadOnly = errorType("hashindex: engine is read-only")

	// ErrNotFound is the normal negative result of a lookup.
	ErrNotFound = errorType("hashindex: key not found")

	// ErrLocked is returned when open-for-write cannot acquire the advisory
	// lock because another writer holds it.
	ErrLocked = errorType("hashindex: root is locked by another writer")

	// ErrInvariant marks an internal contract violation (e.g. the log file
	// shrank underneath a read-only observer). Treated as fatal: callers
	// should close and not reuse the handle.
	ErrInvariant = errorType("hashindex: invariant violation")
)

// ErrInvalidKeySize is returned by replace when the encoded key does not
// match the configured fixed key size.
type ErrInvalidKeySize struct {
	Got, Want int
}

func (e ErrInvalidKeySize) Error() string {
	return fmt.Sprintf("hashindex: invalid key size: got %d, want %d", e.Got, e.Want)
}

// ErrInvalidValueSize is returned by replace when the encoded value does not
// match the configured fixed value size.
type ErrInvalidValueSize struct {
	Got, Want int
}

func (e ErrInvalidValueSize) Error() string {
	return fmt.Sprintf("hashindex: invalid value size: got %d, want %d", e.Got, e.Want)
}
