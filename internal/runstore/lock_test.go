package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireDirLock_BlocksConcurrentAcquire(t *testing.T) {
	locks, dir := t.TempDir(), t.TempDir()

	lock, err := AcquireDirLock(locks, dir)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()
	if !strings.HasPrefix(lock.Path(), locks) {
		t.Fatalf("lock file %s should live under %s", lock.Path(), locks)
	}

	if _, err := AcquireDirLock(locks, dir+string(filepath.Separator)); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected second acquire to fail with ErrLocked, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	lock2, err := AcquireDirLock(locks, dir)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func TestAcquireDirLock_NeverTouchesTarget(t *testing.T) {
	locks, dir := t.TempDir(), t.TempDir()
	userFile := filepath.Join(dir, ".imgbatch.lock")
	if err := os.WriteFile(userFile, []byte("user data"), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := AcquireDirLock(locks, dir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected target directory unchanged, got %d entries", len(entries))
	}
	data, err := os.ReadFile(userFile)
	if err != nil || string(data) != "user data" {
		t.Fatalf("user file changed: %q, %v", data, err)
	}
}

func TestAcquireDirLock_DistinctDirectories(t *testing.T) {
	locks := t.TempDir()
	a, err := AcquireDirLock(locks, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = a.Release()
	}()
	b, err := AcquireDirLock(locks, t.TempDir())
	if err != nil {
		t.Fatalf("unrelated directory should not be locked: %v", err)
	}
	_ = b.Release()
}

func TestAcquireDirLock_EmptyDirectory(t *testing.T) {
	if _, err := AcquireDirLock(t.TempDir(), " "); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
