// Package convert implements the synchronous conversion pass over one source
// directory.
package convert

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"imgbatch/internal/imagecodec"
	"imgbatch/internal/model"
	"imgbatch/internal/runstore"
)

// Observer receives progress from a running pipeline. Calls happen on the
// pipeline's goroutine, in order.
type Observer interface {
	FileCountKnown(n int)
	StatusText(text string)
	ImagePreview(path string)
	FileProcessed()
	Error(kind model.ErrorKind, file string, cause error)
}

type NopObserver struct{}

func (NopObserver) FileCountKnown(int)                   {}
func (NopObserver) StatusText(string)                    {}
func (NopObserver) ImagePreview(string)                  {}
func (NopObserver) FileProcessed()                       {}
func (NopObserver) Error(model.ErrorKind, string, error) {}

type Result struct {
	Tasks []model.FileTask `json:"tasks"`
	Stats model.Stats      `json:"stats"`
}

type Pipeline struct {
	codec  imagecodec.Codec
	logger *slog.Logger
}

func New(codec imagecodec.Codec, logger *slog.Logger) *Pipeline {
	if codec == nil {
		codec = imagecodec.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{codec: codec, logger: logger.With("component", "convert")}
}

// Run converts every recognized file of cfg.SourceDir into cfg.DestDir.
// Per-file failures are reported to obs and recorded in the result; only an
// invalid config or an unreadable directory returns an error.
func (p *Pipeline) Run(cfg model.JobConfig, obs Observer) (Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	existing, err := snapshotDest(cfg.DestDir)
	if err != nil {
		return Result{}, err
	}
	candidates, err := listCandidates(cfg.SourceDir)
	if err != nil {
		return Result{}, err
	}

	p.logger.Info("conversion started",
		"source", cfg.SourceDir,
		"dest", cfg.DestDir,
		"format", cfg.TargetFormat,
		"candidates", len(candidates),
		"existing", len(existing),
	)
	obs.FileCountKnown(len(candidates))

	tasks := make([]model.FileTask, 0, len(candidates))
	for _, name := range candidates {
		task := p.processFile(cfg, name, existing, obs)
		tasks = append(tasks, task)
	}

	res := Result{Tasks: tasks, Stats: model.CountTasks(tasks, cfg.DeleteOriginals)}
	p.logger.Info("conversion finished",
		"converted", res.Stats.Converted,
		"skipped_exists", res.Stats.SkippedExists,
		"skipped_unrecognized", res.Stats.SkippedUnrecognized,
		"failed", res.Stats.Failed,
	)
	return res, nil
}

func (p *Pipeline) processFile(cfg model.JobConfig, name string, existing map[string]bool, obs Observer) model.FileTask {
	sourcePath := filepath.Join(cfg.SourceDir, name)
	task := model.FileTask{SourcePath: sourcePath}

	destName, ext, ok := DestFileName(name, cfg.TargetFormat)
	if !ok {
		task.Outcome = model.OutcomeSkippedUnrecognized
		p.logger.Debug("skipping unrecognized file", "file", name)
		return task
	}
	task.RecognizedExtension = ext
	task.DestFileName = destName

	if existing[norm.NFC.String(destName)] {
		task.Outcome = model.OutcomeSkippedExists
		p.logger.Debug("skipping existing destination", "file", name, "dest", destName)
		return task
	}

	obs.StatusText(fmt.Sprintf("Editing %s now...", name))
	obs.ImagePreview(sourcePath)

	if err := p.convertFile(sourcePath, ext, filepath.Join(cfg.DestDir, destName), cfg.TargetFormat); err != nil {
		task.Outcome = model.OutcomeFailed
		task.Reason = err.Error()
		p.logger.Warn("conversion failed", "file", name, "error", err)
		obs.Error(model.ErrConversionFailed, name, err)
		return task
	}
	task.Outcome = model.OutcomeConverted
	existing[norm.NFC.String(destName)] = true
	obs.StatusText(fmt.Sprintf("Saved as %s...", destName))
	obs.FileProcessed()

	if cfg.DeleteOriginals {
		if err := os.Remove(sourcePath); err != nil {
			task.Reason = err.Error()
			p.logger.Warn("delete original failed", "file", name, "error", err)
			obs.Error(model.ErrDeleteFailed, name, err)
			return task
		}
		task.Deleted = true
	}
	return task
}

func (p *Pipeline) convertFile(sourcePath, ext, destPath string, format model.Format) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer f.Close()

	img, err := p.codec.Decode(f, ext)
	if err != nil {
		return err
	}
	return runstore.WriteWith(destPath, func(w io.Writer) error {
		return p.codec.Encode(w, img, format)
	})
}

// snapshotDest keys destination names by their NFC form so a name typed on
// one platform matches the same name stored decomposed on another.
func snapshotDest(dir string) (map[string]bool, error) {
	names, err := runstore.ListNames(dir, false)
	if err != nil {
		return nil, &model.JobError{Kind: model.ErrDirectoryUnreadable, Detail: dir, Err: err}
	}
	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[norm.NFC.String(name)] = true
	}
	return existing, nil
}

func listCandidates(dir string) ([]string, error) {
	names, err := runstore.ListNames(dir, true)
	if err != nil {
		return nil, &model.JobError{Kind: model.ErrDirectoryUnreadable, Detail: dir, Err: err}
	}
	return names, nil
}
