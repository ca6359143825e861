package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// LockFile is the fixed-name advisory lock at the catalog root.
const LockFile = "catalog.lock"

// ErrLocked means another process currently owns the catalog. This is a
// normal branch, not a failure: callers proceed read-only and skip
// destructive cleanup.
var ErrLocked = errors.New("catalog is locked by another process")

// Lock is a held process-wide exclusive catalog lock. It guards
// cross-process catalog mutation only; it does not synchronize goroutines.
type Lock struct {
	f *os.File
}

// AcquireLock takes the catalog's advisory lock without blocking. A held
// lock yields ErrLocked; any other failure is an I/O error.
func AcquireLock(root string) (*Lock, error) {
	path := filepath.Join(root, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock file %q: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock. Idempotent and nil-safe, so it can sit in a
// defer on every exit path even when acquisition failed.
func (l *Lock) Release() {
	if l == nil || l.f == nil {
		return
	}
	// closing the descriptor releases the flock
	l.f.Close()
	l.f = nil
}
