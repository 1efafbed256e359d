package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the output directory for the duration of a run.
const LockFileName = ".trackdl.lock"

// LockDir takes an advisory lock on dir so two runs never plan against the same directory at once.
//
// The returned unlock function releases the lock; it is safe to call more than once.
func LockDir(dir string) (unlock func() error, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	return lock.Unlock, nil
}
