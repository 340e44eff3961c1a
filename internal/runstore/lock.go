package runstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("directory is locked")

type DirLock struct {
	lock *flock.Flock
	path string
}

// DefaultLockDir is where destination locks live when the caller does not
// choose a directory. It is never inside a folder the user converts into.
func DefaultLockDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve lock directory: %w", err)
	}
	return filepath.Join(base, "imgbatch", "locks"), nil
}

// LockPath maps dir to its lock file under lockDir. Equal absolute paths
// share one lock file.
func LockPath(lockDir, dir string) (string, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return "", fmt.Errorf("lock directory is required")
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:16])+".lock"), nil
}

// AcquireDirLock takes a non-blocking advisory lock for dir, stored under
// lockDir (DefaultLockDir when empty). It returns ErrLocked when another
// process holds it. dir itself is never written to.
func AcquireDirLock(lockDir, dir string) (*DirLock, error) {
	if strings.TrimSpace(lockDir) == "" {
		d, err := DefaultLockDir()
		if err != nil {
			return nil, err
		}
		lockDir = d
	}
	lockPath, err := LockPath(lockDir, dir)
	if err != nil {
		return nil, err
	}
	if err := Mkdir(lockDir); err != nil {
		return nil, err
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &DirLock{lock: fl, path: lockPath}, nil
}

func (l *DirLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. The lock file stays in place so a waiting process
// never locks an inode that is about to be unlinked.
func (l *DirLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
