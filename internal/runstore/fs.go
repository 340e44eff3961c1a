package runstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tempPattern = ".imgbatch-tmp-*"

var ErrDirectoryUnreadable = errors.New("directory unreadable")

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteWith streams fn's output into a temp file next to path, syncs it, and
// renames it into place. path is either fully written or untouched.
func WriteWith(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

// MkdirParent creates the directory that will hold path.
func MkdirParent(path string) error {
	return Mkdir(filepath.Dir(path))
}

func WriteBytes(path string, data []byte) error {
	if err := MkdirParent(path); err != nil {
		return err
	}
	return WriteWith(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write temp file for %s: %w", path, err)
		}
		return nil
	})
}

// ListNames returns the entry names of dir sorted lexicographically. With
// filesOnly, subdirectories are left out. Any failure wraps
// ErrDirectoryUnreadable.
func ListNames(dir string, filesOnly bool) ([]string, error) {
	target := strings.TrimSpace(dir)
	if target == "" {
		return nil, fmt.Errorf("list directory: empty path: %w", ErrDirectoryUnreadable)
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w: %w", target, ErrDirectoryUnreadable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if filesOnly && e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CheckWritable creates and removes a probe file in dir.
func CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return nil
}
