package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgbatch/internal/model"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "settings.toml")

	s, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved %q, want %q", resolved, path)
	}
	if s.Format != "png" || s.Logging.Level != DefaultLogLevel || !s.History.Enabled {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if !strings.HasSuffix(s.History.Path, filepath.Join("imgbatch", "history.db")) {
		t.Fatalf("unexpected history path %q", s.History.Path)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.toml")
	in := Default()
	in.SourceDir = "  /photos/in "
	in.DestDir = "/photos/out"
	in.Format = "JPG"
	in.DeleteOriginals = true
	in.Logging.Level = "DEBUG"

	if _, err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if out.SourceDir != "/photos/in" || out.Format != "jpeg" || !out.DeleteOriginals || out.Logging.Level != "debug" {
		t.Fatalf("unexpected round trip %+v", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[logging]") || !strings.Contains(string(data), "jpeg") {
		t.Fatalf("unexpected TOML:\n%s", data)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"format":     "format = 'webp'\n",
		"log level":  "[logging]\nlevel = 'loud'\n",
		"log format": "[logging]\nformat = 'xml'\n",
		"syntax":     "format = \n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSetAndGet(t *testing.T) {
	s := Default()
	if err := s.Set("format", "tif"); err != nil {
		t.Fatalf("Set format: %v", err)
	}
	if v, _ := s.Get("format"); v != "tiff" {
		t.Fatalf("format=%q", v)
	}
	if err := s.Set("delete_originals", "yes"); err == nil {
		t.Fatal("expected bool parse error")
	}
	if err := s.Set("delete_originals", "true"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("format", "webp"); err == nil {
		t.Fatal("expected invalid format error")
	}
	if s.Format != "tiff" {
		t.Fatalf("failed Set must not modify settings, format=%q", s.Format)
	}
	if err := s.Set("nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
	for _, key := range Keys() {
		if _, err := s.Get(key); err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}
	}
}

func TestJobConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s := Default()
	s.SourceDir = "~/in"
	s.DestDir = "/tmp/out"
	s.Format = "jpeg"
	s.DeleteOriginals = true

	cfg := s.JobConfig()
	if cfg.SourceDir != filepath.Join(home, "in") || cfg.DestDir != "/tmp/out" {
		t.Fatalf("unexpected paths %+v", cfg)
	}
	if cfg.TargetFormat != model.FormatJPEG || !cfg.DeleteOriginals {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	empty := Default().JobConfig()
	if err := empty.Validate(); model.KindOf(err) != model.ErrConfigInvalid {
		t.Fatalf("expected empty paths to be invalid, got %v", err)
	}
}
