package tsutsumi

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// BuildLock is a per-project advisory lock held for the duration of a
// build so two tsutsumi processes cannot race over the same output and
// work directories.
type BuildLock struct {
	f *os.File
}

// AcquireBuildLock takes the project lock non-blockingly. A held lock
// means another build is running and the caller must bail out.
func AcquireBuildLock() (*BuildLock, error) {
	lockPath := filepath.Join(projectDir, LockName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, errLockHeld
	}
	return &BuildLock{f: f}, nil
}

// Release drops the lock. The lock file itself is left in place; flock
// state, not existence, is what matters.
func (l *BuildLock) Release() {
	if l == nil || l.f == nil {
		return
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
	l.f = nil
}
