package kvio

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock is the advisory, cross-process writer-exclusion lock taken on
// lock_path(root) for the lifetime of a writable engine.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock tries to take the exclusive lock at path without blocking. It
// reports ok=false rather than an error when the lock is already held
// elsewhere, so callers can translate that into errs.ErrLocked.
func AcquireLock(path string) (lock *Lock, ok bool, err error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("kvio: acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{fl: fl}, true, nil
}

func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.fl.Unlock()
}
