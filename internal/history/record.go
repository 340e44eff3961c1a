package history

import (
	"time"

	"imgbatch/internal/job"
	"imgbatch/internal/model"
)

// FromSummary converts the folded event stream of one job into a Record.
func FromSummary(s job.Summary, cfg model.JobConfig) Record {
	r := Record{
		JobID:       s.JobID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Config:      cfg,
		Outcome:     OutcomeFinished,
		Stats:       s.Stats,
		ErrorEvents: len(s.Errors),
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	switch {
	case s.Failed != nil:
		r.Outcome = OutcomeRejected
		r.Message = s.Failed.Message
	default:
		if ev, ok := s.FatalError(); ok {
			r.Outcome = OutcomeAborted
			r.Message = ev.Message
		}
	}
	return r
}
