package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgbatch/internal/history"
	"imgbatch/internal/job"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// cliWorkspace isolates settings and history under a temp root and returns
// populated source and empty destination folders.
func cliWorkspace(t *testing.T) (src, dst string) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))

	src = filepath.Join(root, "in")
	dst = filepath.Join(root, "out")
	for _, dir := range []string{src, dst} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestPNG(t, filepath.Join(src, "a.png"))
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	return src, dst
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestConvertCommandPlainRun(t *testing.T) {
	src, dst := cliWorkspace(t)

	out, err := runCLI(t, "convert", "--source", src, "--dest", dst, "--format", "gif", "--no-tui", "--save")
	if err != nil {
		t.Fatalf("convert failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Finished.", "converted: 1", "skipped (unrecognized): 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "a.gif")); err != nil {
		t.Fatalf("expected converted file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "a.png")); err != nil {
		t.Fatalf("original must stay without --delete-originals: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "imgbatch", "settings.toml"))
	if err != nil {
		t.Fatalf("expected saved settings: %v", err)
	}
	if !strings.Contains(string(saved), "gif") || !strings.Contains(string(saved), src) {
		t.Fatalf("unexpected saved settings:\n%s", saved)
	}

	out, err = runCLI(t, "convert", "--no-tui")
	if err != nil {
		t.Fatalf("second convert from saved settings failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "converted: 0") || !strings.Contains(out, "skipped (already in out): 1") {
		t.Fatalf("expected second run to skip existing output:\n%s", out)
	}

	out, err = runCLI(t, "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(records) != 2 || records[0].Stats.SkippedExists != 1 || records[1].Stats.Converted != 1 {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestConvertCommandRejectsInvalidConfig(t *testing.T) {
	src, dst := cliWorkspace(t)

	_, err := runCLI(t, "convert", "--source", src, "--dest", dst, "--format", "webp", "--no-tui", "--save")
	if err == nil || !strings.Contains(err.Error(), "config_invalid") {
		t.Fatalf("expected config_invalid error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "imgbatch", "settings.toml")); !os.IsNotExist(err) {
		t.Fatalf("rejected job must not save settings: %v", err)
	}

	_, err = runCLI(t, "convert", "--dest", dst, "--no-tui")
	if err == nil || !strings.Contains(err.Error(), "source directory is required") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestConvertCommandInteractiveRejectsInvalidFormat(t *testing.T) {
	src, dst := cliWorkspace(t)
	prev := interactiveTerminal
	interactiveTerminal = func() bool { return true }
	t.Cleanup(func() { interactiveTerminal = prev })

	_, err := runCLI(t, "convert", "--source", src, "--dest", dst, "--format", "webp")
	if err == nil || !strings.Contains(err.Error(), `config_invalid: unsupported target format "webp"`) {
		t.Fatalf("expected config_invalid before the window opens, got %v", err)
	}
	if entries, _ := os.ReadDir(dst); len(entries) != 0 {
		t.Fatalf("nothing may be written on a rejected config, got %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "imgbatch", "settings.toml")); !os.IsNotExist(err) {
		t.Fatalf("rejected config must not save settings: %v", err)
	}
}

func TestConvertCommandLeavesNoLockInDestination(t *testing.T) {
	src, dst := cliWorkspace(t)

	if _, err := runCLI(t, "convert", "--source", src, "--dest", dst, "--format", "png", "--no-tui"); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.png" {
		t.Fatalf("expected only the converted file in the destination, got %v", entries)
	}
}

func TestConvertCommandMissingSourceFolderStillExitsZero(t *testing.T) {
	_, dst := cliWorkspace(t)

	out, err := runCLI(t, "convert", "--source", filepath.Join(dst, "missing"), "--dest", dst, "--no-tui")
	if err != nil {
		t.Fatalf("a finished job must not fail the command: %v", err)
	}
	if !strings.Contains(out, "error: directory_unreadable") || !strings.Contains(out, "Finished.") {
		t.Fatalf("expected unreadable error then Finished.:\n%s", out)
	}
}

func TestConvertCommandJSONEvents(t *testing.T) {
	src, dst := cliWorkspace(t)

	out, err := runCLI(t, "convert", "--source", src, "--dest", dst, "--format", "tga", "--json", "--delete-originals")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	var events []job.Event
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev job.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode event line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) < 3 {
		t.Fatalf("expected several events, got %d", len(events))
	}
	if events[0].Kind != job.EventStarted {
		t.Fatalf("expected started first, got %s", events[0].Kind)
	}
	last := events[len(events)-1]
	if last.Kind != job.EventFinished || last.Stats == nil || last.Stats.Deleted != 1 {
		t.Fatalf("unexpected final event %+v", last)
	}
	for i, ev := range events {
		if ev.Seq != i+1 || ev.JobID != events[0].JobID {
			t.Fatalf("event %d has seq=%d job=%q", i, ev.Seq, ev.JobID)
		}
	}
	if _, err := os.Stat(filepath.Join(src, "a.png")); !os.IsNotExist(err) {
		t.Fatalf("expected original deleted, stat err=%v", err)
	}
}

func TestSettingsSetAndShow(t *testing.T) {
	cliWorkspace(t)

	if _, err := runCLI(t, "settings", "set", "format", "TGA"); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	out, err := runCLI(t, "settings", "show")
	if err != nil {
		t.Fatalf("settings show failed: %v", err)
	}
	if !strings.Contains(out, "format: tga") {
		t.Fatalf("expected normalized format in output:\n%s", out)
	}
	if _, err := runCLI(t, "settings", "set", "colour", "blue"); err == nil {
		t.Fatal("expected unknown key to fail")
	}
	if _, err := runCLI(t, "settings", "set", "format", "webp"); err == nil {
		t.Fatal("expected invalid format to fail")
	}
}

func TestDoctorAndFormatsCommands(t *testing.T) {
	src, dst := cliWorkspace(t)

	out, err := runCLI(t, "doctor", "--source", src, "--dest", dst)
	if err != nil {
		t.Fatalf("doctor failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "codec:tga") || !strings.Contains(out, "all checks passed") {
		t.Fatalf("unexpected doctor output:\n%s", out)
	}

	if _, err := runCLI(t, "doctor", "--source", filepath.Join(src, "missing"), "--dest", dst); err == nil {
		t.Fatal("expected doctor to fail on a missing source")
	}

	out, err = runCLI(t, "formats")
	if err != nil {
		t.Fatalf("formats failed: %v", err)
	}
	for _, want := range []string{"JPEG", ".jpg", ".tiff", ".bmp"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in formats output:\n%s", want, out)
		}
	}
}
