// Package settings persists the last-used conversion parameters and the
// logging/history preferences as a TOML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"imgbatch/internal/logging"
	"imgbatch/internal/model"
	"imgbatch/internal/runstore"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

type Settings struct {
	SourceDir       string  `toml:"source_dir" json:"source_dir"`
	DestDir         string  `toml:"dest_dir" json:"dest_dir"`
	Format          string  `toml:"format" json:"format"`
	DeleteOriginals bool    `toml:"delete_originals" json:"delete_originals"`
	Logging         Logging `toml:"logging" json:"logging"`
	History         History `toml:"history" json:"history"`
}

type Logging struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`

	// File receives log output; empty means stderr for plain runs and no
	// logging at all while the interactive UI owns the terminal.
	File string `toml:"file,omitempty" json:"file,omitempty"`
}

type History struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

func Default() Settings {
	return Settings{
		Format: string(model.FormatPNG),
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
	}
}

// DefaultPath returns the settings file location, honoring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "imgbatch", "settings.toml"), nil
	}
	return ExpandPath("~/.config/imgbatch/settings.toml")
}

func defaultHistoryPath() string {
	if base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); base != "" {
		return filepath.Join(base, "imgbatch", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/state/imgbatch/history.db"
	}
	return filepath.Join(home, ".local", "state", "imgbatch", "history.db")
}

// Load reads the settings at path (or DefaultPath when empty). A missing file
// yields defaults with exists=false.
func Load(path string) (Settings, string, bool, error) {
	s := Default()
	resolved, err := resolvePath(path)
	if err != nil {
		return Settings{}, "", false, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, resolved, false, nil
		}
		return Settings{}, "", false, fmt.Errorf("open settings: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&s); err != nil {
		return Settings{}, "", false, fmt.Errorf("parse settings %s: %w", resolved, err)
	}
	s, err = normalize(s)
	if err != nil {
		return Settings{}, "", false, fmt.Errorf("settings %s: %w", resolved, err)
	}
	return s, resolved, true, nil
}

// Save normalizes s and writes it atomically to path (or DefaultPath).
func Save(path string, s Settings) (string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	s, err = normalize(s)
	if err != nil {
		return "", err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	if err := runstore.WriteBytes(resolved, data); err != nil {
		return "", err
	}
	return resolved, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPath()
	}
	return ExpandPath(path)
}

func normalize(raw Settings) (Settings, error) {
	s := raw
	s.SourceDir = strings.TrimSpace(s.SourceDir)
	s.DestDir = strings.TrimSpace(s.DestDir)

	if strings.TrimSpace(s.Format) == "" {
		s.Format = string(model.FormatPNG)
	}
	format, err := model.ParseFormat(s.Format)
	if err != nil {
		return Settings{}, err
	}
	s.Format = string(format)

	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = DefaultLogLevel
	}
	if _, err := logging.ParseLevel(s.Logging.Level); err != nil {
		return Settings{}, err
	}
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	switch s.Logging.Format {
	case "":
		s.Logging.Format = DefaultLogFormat
	case "console", "json":
	default:
		return Settings{}, fmt.Errorf("log format: unsupported value %q", raw.Logging.Format)
	}
	s.Logging.File = strings.TrimSpace(s.Logging.File)

	s.History.Path = strings.TrimSpace(s.History.Path)
	if s.History.Path == "" {
		s.History.Path = defaultHistoryPath()
	}
	return s, nil
}

// JobConfig builds the job input from s, expanding "~" in both paths. The
// result is not validated; the runner reports an invalid config itself.
func (s Settings) JobConfig() model.JobConfig {
	cfg := model.JobConfig{
		SourceDir:       expandOrKeep(s.SourceDir),
		DestDir:         expandOrKeep(s.DestDir),
		TargetFormat:    model.Format(s.Format),
		DeleteOriginals: s.DeleteOriginals,
	}
	if f, err := model.ParseFormat(s.Format); err == nil {
		cfg.TargetFormat = f
	}
	return cfg
}

func expandOrKeep(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"source_dir",
		"dest_dir",
		"format",
		"delete_originals",
		"logging.level",
		"logging.format",
		"logging.file",
		"history.enabled",
		"history.path",
	}
}

func (s Settings) Get(key string) (string, error) {
	switch key {
	case "source_dir":
		return s.SourceDir, nil
	case "dest_dir":
		return s.DestDir, nil
	case "format":
		return s.Format, nil
	case "delete_originals":
		return strconv.FormatBool(s.DeleteOriginals), nil
	case "logging.level":
		return s.Logging.Level, nil
	case "logging.format":
		return s.Logging.Format, nil
	case "logging.file":
		return s.Logging.File, nil
	case "history.enabled":
		return strconv.FormatBool(s.History.Enabled), nil
	case "history.path":
		return s.History.Path, nil
	}
	return "", fmt.Errorf("unknown settings key %q", key)
}

// Set assigns one key from its string form and re-normalizes.
func (s *Settings) Set(key, value string) error {
	next := *s
	switch key {
	case "source_dir":
		next.SourceDir = value
	case "dest_dir":
		next.DestDir = value
	case "format":
		next.Format = value
	case "delete_originals":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("delete_originals must be true or false")
		}
		next.DeleteOriginals = b
	case "logging.level":
		next.Logging.Level = value
	case "logging.format":
		next.Logging.Format = value
	case "logging.file":
		next.Logging.File = value
	case "history.enabled":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("history.enabled must be true or false")
		}
		next.History.Enabled = b
	case "history.path":
		next.History.Path = value
	default:
		return fmt.Errorf("unknown settings key %q", key)
	}
	normalized, err := normalize(next)
	if err != nil {
		return err
	}
	*s = normalized
	return nil
}

// ExpandPath resolves "~" and returns an absolute, cleaned path.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if strings.HasPrefix(value, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else if len(value) > 1 && (value[1] == '/' || value[1] == '\\') {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}
