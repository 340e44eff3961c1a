package cli

import (
	"log/slog"
	"strings"
	"sync"

	"imgbatch/internal/logging"
	"imgbatch/internal/settings"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	settingsOnce   sync.Once
	settings       settings.Settings
	settingsPath   string
	settingsExists bool
	settingsErr    error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureSettings loads the settings file once per invocation; a missing file
// yields defaults.
func (c *commandContext) ensureSettings() (settings.Settings, string, error) {
	c.settingsOnce.Do(func() {
		c.settings, c.settingsPath, c.settingsExists, c.settingsErr = settings.Load(c.configPath())
	})
	return c.settings, c.settingsPath, c.settingsErr
}

// logger builds the command logger from the settings, honoring the
// --log-level and --log-format overrides. When quiet is set the terminal is
// owned by the interactive UI, so records go to the configured log file or
// nowhere.
func (c *commandContext) logger(s settings.Settings, quiet bool) (*slog.Logger, error) {
	opts := logging.Options{
		Level:  s.Logging.Level,
		Format: s.Logging.Format,
	}
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		opts.Level = *c.logLevelFlag
	}
	if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
		opts.Format = *c.logFormatFlag
	}

	file := strings.TrimSpace(s.Logging.File)
	if file != "" {
		expanded, err := settings.ExpandPath(file)
		if err != nil {
			return nil, err
		}
		file = expanded
	}
	switch {
	case quiet && file == "":
		return logging.Discard(), nil
	case quiet:
		opts.OutputPaths = []string{file}
	default:
		opts.OutputPaths = []string{"stderr", file}
	}
	return logging.New(opts)
}
