package model

import (
	"fmt"
	"strings"
)

// JobConfig is the immutable input of one conversion job.
type JobConfig struct {
	SourceDir       string `json:"source_dir"`
	DestDir         string `json:"dest_dir"`
	TargetFormat    Format `json:"target_format"`
	DeleteOriginals bool   `json:"delete_originals"`
}

func (c JobConfig) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return &JobError{Kind: ErrConfigInvalid, Detail: "source directory is required"}
	}
	if strings.TrimSpace(c.DestDir) == "" {
		return &JobError{Kind: ErrConfigInvalid, Detail: "destination directory is required"}
	}
	if !c.TargetFormat.Valid() {
		return &JobError{Kind: ErrConfigInvalid, Detail: fmt.Sprintf("unsupported target format %q", string(c.TargetFormat))}
	}
	return nil
}

const (
	OutcomeConverted           = "converted"
	OutcomeSkippedExists       = "skipped_exists"
	OutcomeSkippedUnrecognized = "skipped_unrecognized"
	OutcomeFailed              = "failed"
)

// FileTask is the per-candidate record produced by the pipeline.
type FileTask struct {
	SourcePath          string `json:"source_path"`
	RecognizedExtension string `json:"recognized_extension,omitempty"`
	DestFileName        string `json:"dest_file_name,omitempty"`
	Outcome             string `json:"outcome"`
	Reason              string `json:"reason,omitempty"`
	Deleted             bool   `json:"deleted,omitempty"`
}

// Stats counts task outcomes for one job.
type Stats struct {
	Candidates          int `json:"candidates"`
	Converted           int `json:"converted"`
	SkippedExists       int `json:"skipped_exists"`
	SkippedUnrecognized int `json:"skipped_unrecognized"`
	Failed              int `json:"failed"`
	Deleted             int `json:"deleted"`
	DeleteFailed        int `json:"delete_failed"`
}

func CountTasks(tasks []FileTask, deleteRequested bool) Stats {
	s := Stats{Candidates: len(tasks)}
	for _, t := range tasks {
		switch t.Outcome {
		case OutcomeConverted:
			s.Converted++
			if t.Deleted {
				s.Deleted++
			} else if deleteRequested {
				s.DeleteFailed++
			}
		case OutcomeSkippedExists:
			s.SkippedExists++
		case OutcomeSkippedUnrecognized:
			s.SkippedUnrecognized++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
