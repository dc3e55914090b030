package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockTimeout = 10 * time.Second
	lockRetry   = 100 * time.Millisecond
	// lockStale is the age after which a lock left by a crashed process is broken.
	lockStale = 2 * time.Minute

	lockDirName = "workspace.lock"
)

// Lock is a directory-based lock shared between processes using the same state directory.
type Lock struct {
	dir     string
	timeout time.Duration
}

// NewLock creates a new lock at the given directory path.
func NewLock(dir string) *Lock {
	return &Lock{dir: dir, timeout: lockTimeout}
}

// Acquire creates the lock directory, retrying until the timeout or ctx ends.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.dir), FileModeDir); err != nil {
		return fmt.Errorf("create lock parent: %w", err)
	}
	deadline := time.Now().Add(l.timeout)
	for {
		err := os.Mkdir(l.dir, FileModeDir)
		if err == nil {
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("create lock directory: %w", err)
		}
		if info, statErr := os.Stat(l.dir); statErr == nil && time.Since(info.ModTime()) > lockStale {
			_ = os.Remove(l.dir)
			continue
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("workspace is locked by another process (%s)", l.dir)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

// Release releases the lock by removing the directory.
func (l *Lock) Release() error {
	return os.Remove(l.dir)
}

// WithLock executes fn while holding the workspace lock of stateDir.
func WithLock(ctx context.Context, stateDir string, fn func() error) error {
	lock := NewLock(filepath.Join(stateDir, lockDirName))
	if err := lock.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()
	return fn()
}
