package runstore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListNames_SortedAndFilesOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.png", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	all, err := ListNames(dir, false)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if strings.Join(all, ",") != "a.png,b.txt,c.png,sub.png" {
		t.Fatalf("unexpected listing %v", all)
	}

	files, err := ListNames(dir, true)
	if err != nil {
		t.Fatalf("ListNames files only: %v", err)
	}
	if strings.Join(files, ",") != "a.png,b.txt,c.png" {
		t.Fatalf("unexpected files-only listing %v", files)
	}
}

func TestListNames_MissingDirectory(t *testing.T) {
	_, err := ListNames(filepath.Join(t.TempDir(), "nope"), true)
	if !errors.Is(err, ErrDirectoryUnreadable) {
		t.Fatalf("expected ErrDirectoryUnreadable, got %v", err)
	}
	if _, err := ListNames("", true); !errors.Is(err, ErrDirectoryUnreadable) {
		t.Fatalf("expected ErrDirectoryUnreadable for empty path, got %v", err)
	}
}

func TestWriteWith_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")

	err := WriteWith(target, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encode failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	names, err := ListNames(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty directory after failed write, got %v", names)
	}
}

func TestWriteBytesCreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	if err := WriteBytes(path, []byte("format = 'png'\n")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "format = 'png'\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	if err := CheckWritable(dir); err != nil {
		t.Fatalf("CheckWritable: %v", err)
	}
	if err := CheckWritable(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
