package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgbatch/internal/runstore"
)

func findCheck(t *testing.T, res Result, name string) Check {
	t.Helper()
	for _, c := range res.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found in %+v", name, res.Checks)
	return Check{}
}

func TestDoctorHealthyWorkspace(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in")
	dst := filepath.Join(root, "out")
	for _, dir := range []string{src, dst} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"a.png", "b.txt"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res := Doctor(context.Background(), Options{
		SourceDir:      src,
		DestDir:        dst,
		ConfigPath:     filepath.Join(root, "cfg", "settings.toml"),
		HistoryEnabled: true,
		HistoryPath:    filepath.Join(root, "state", "history.db"),
		LockDir:        filepath.Join(root, "locks"),
	})
	if !res.OK {
		t.Fatalf("expected healthy result, got %+v", res.Checks)
	}
	if msg := findCheck(t, res, "directory:source").Message; !strings.Contains(msg, "2 files, 1 with recognized") {
		t.Fatalf("unexpected source message %q", msg)
	}
	for _, name := range []string{"codec:png", "codec:jpeg", "codec:gif", "codec:tiff", "codec:tga"} {
		if c := findCheck(t, res, name); !c.OK {
			t.Fatalf("%s failed: %s", name, c.Message)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "cfg")); err != nil {
		t.Fatalf("expected config directory to be created: %v", err)
	}
}

func TestDoctorReportsProblems(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(root, "out")
	if err := os.Mkdir(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	locks := t.TempDir()
	lock, err := runstore.AcquireDirLock(locks, dst)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = lock.Release()
	}()

	res := Doctor(context.Background(), Options{
		SourceDir: filepath.Join(root, "missing"),
		DestDir:   dst,
		LockDir:   locks,
	})
	if res.OK {
		t.Fatal("expected unhealthy result")
	}
	if c := findCheck(t, res, "directory:source"); c.OK {
		t.Fatalf("missing source should fail: %+v", c)
	}
	if c := findCheck(t, res, "directory:dest"); c.OK || !strings.Contains(c.Message, "another job") {
		t.Fatalf("locked destination should fail: %+v", c)
	}
	if c := findCheck(t, res, "history"); !c.OK || c.Message != "disabled" {
		t.Fatalf("unexpected history check %+v", c)
	}
}

func TestDoctorUnconfiguredPaths(t *testing.T) {
	res := Doctor(context.Background(), Options{})
	if !findCheck(t, res, "directory:source").OK || !findCheck(t, res, "directory:dest").OK {
		t.Fatalf("unconfigured directories should not fail doctor: %+v", res.Checks)
	}
}
