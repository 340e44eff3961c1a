package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"imgbatch/internal/history"
	"imgbatch/internal/job"
	"imgbatch/internal/model"
	"imgbatch/internal/settings"
)

// interactiveTerminal reports whether convert may open its window.
var interactiveTerminal = func() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

type convertOptions struct {
	source          string
	dest            string
	format          string
	deleteOriginals bool
	jsonOut         bool
	noTUI           bool
	save            bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every recognized image in the source folder",
		Long: "Convert every image in --source whose extension is recognized into --format,\n" +
			"writing results to --dest. Files whose converted name already exists in the\n" +
			"destination are skipped. Unset flags fall back to the saved settings.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, path, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			st = applyConvertFlags(cmd, st, opts)
			cfg := jobConfigFromSettings(st, opts.format)

			if !opts.noTUI && !opts.jsonOut && interactiveTerminal() {
				if err := checkTargetFormat(cfg); err != nil {
					return err
				}
				return runConvertTUI(cmd.Context(), ctx, st, path)
			}

			logger, err := ctx.logger(st, false)
			if err != nil {
				return err
			}
			return runConvertPlain(cmd, st, path, cfg, opts, logger)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Folder holding the images to convert")
	cmd.Flags().StringVar(&opts.dest, "dest", "", "Folder receiving the converted images")
	cmd.Flags().StringVar(&opts.format, "format", "", "Target format: png, jpeg, gif, tiff, or tga")
	cmd.Flags().BoolVar(&opts.deleteOriginals, "delete-originals", false, "Delete each source file after it converts successfully")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the event stream as JSON lines")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Print plain progress lines even on a terminal")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Remember the effective folders, format, and delete flag")

	return cmd
}

// applyConvertFlags overlays the flags the user actually set on st. The
// format is carried separately so an invalid value reaches the runner and is
// reported as a rejected job.
func applyConvertFlags(cmd *cobra.Command, st settings.Settings, opts convertOptions) settings.Settings {
	if cmd.Flags().Changed("source") {
		st.SourceDir = strings.TrimSpace(opts.source)
	}
	if cmd.Flags().Changed("dest") {
		st.DestDir = strings.TrimSpace(opts.dest)
	}
	if cmd.Flags().Changed("delete-originals") {
		st.DeleteOriginals = opts.deleteOriginals
	}
	if f, err := model.ParseFormat(opts.format); err == nil {
		st.Format = string(f)
	}
	return st
}

func jobConfigFromSettings(st settings.Settings, formatFlag string) model.JobConfig {
	cfg := st.JobConfig()
	if raw := strings.TrimSpace(formatFlag); raw != "" {
		if f, err := model.ParseFormat(raw); err == nil {
			cfg.TargetFormat = f
		} else {
			cfg.TargetFormat = model.Format(strings.ToLower(raw))
		}
	}
	return cfg
}

// checkTargetFormat rejects an unknown --format before the window opens; the
// form can fill in missing folders but would silently drop the format.
func checkTargetFormat(cfg model.JobConfig) error {
	if cfg.TargetFormat.Valid() {
		return nil
	}
	return &model.JobError{
		Kind:   model.ErrConfigInvalid,
		Detail: fmt.Sprintf("unsupported target format %q", string(cfg.TargetFormat)),
	}
}

func runConvertPlain(cmd *cobra.Command, st settings.Settings, path string, cfg model.JobConfig, opts convertOptions, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	runner := job.NewRunner(job.Options{Logger: logger})
	events, err := runner.Start(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	printer := newProgressPrinter(out, isTerminal(out))
	summary := job.Drain(events, func(ev job.Event) {
		if opts.jsonOut {
			if err := enc.Encode(ev); err != nil {
				logger.Warn("write event failed", "error", err)
			}
			return
		}
		printer.Handle(ev)
	})

	recordHistory(cmd.Context(), st, cfg, summary, logger)

	if summary.Failed != nil {
		return errors.New(summary.Failed.Message)
	}
	if opts.save {
		saved, err := settings.Save(path, st)
		if err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		logger.Info("settings saved", "path", saved)
	}
	if !opts.jsonOut {
		printSummary(out, summary, cfg.DestDir)
	}
	return nil
}

// recordHistory appends the job to the history database when enabled. A
// history failure never changes the outcome of the conversion.
func recordHistory(ctx context.Context, st settings.Settings, cfg model.JobConfig, summary job.Summary, logger *slog.Logger) {
	if !st.History.Enabled || summary.JobID == "" {
		return
	}
	path, err := settings.ExpandPath(st.History.Path)
	if err != nil {
		logger.Warn("history path invalid", "path", st.History.Path, "error", err)
		return
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Warn("history unavailable", "path", path, "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, history.FromSummary(summary, cfg)); err != nil {
		logger.Warn("history record failed", "job_id", summary.JobID, "error", err)
	}
}
