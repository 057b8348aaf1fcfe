package store

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLocked means another screener run currently holds the run lock.
var ErrLocked = errors.New("another run is in progress")

// Lock is a file-based mutual exclusion marker preventing two runs from
// interleaving writes to the same audit log and qualifier set.
type Lock struct {
	path string
}

// AcquireLock takes the run lock, failing with ErrLocked when the lock
// file already exists. force removes a pre-existing (presumed stale) lock
// first.
func AcquireLock(path string, force bool) (*Lock, error) {
	if force {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	f.Close()
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
