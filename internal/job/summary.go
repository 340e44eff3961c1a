package job

import (
	"time"

	"imgbatch/internal/model"
)

// Summary folds an event stream into the facts a caller reports once the
// job is over.
type Summary struct {
	JobID      string      `json:"job_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	FileCount  int         `json:"file_count"`
	Processed  int         `json:"processed"`
	LastStatus string      `json:"last_status,omitempty"`
	Errors     []Event     `json:"errors,omitempty"`
	Failed     *Event      `json:"failed,omitempty"`
	Stats      model.Stats `json:"stats"`
	Finished   bool        `json:"finished"`
}

func (s *Summary) Apply(ev Event) {
	if s.JobID == "" {
		s.JobID = ev.JobID
	}
	switch ev.Kind {
	case EventStarted:
		s.StartedAt = ev.Time
	case EventFileCountKnown:
		s.FileCount = ev.Count
	case EventStatusText:
		s.LastStatus = ev.Text
	case EventFileProcessed:
		s.Processed++
	case EventError:
		s.Errors = append(s.Errors, ev)
	case EventFailed:
		failed := ev
		s.Failed = &failed
		s.StartedAt = ev.Time
		s.FinishedAt = ev.Time
	case EventFinished:
		s.FinishedAt = ev.Time
		s.Finished = true
		if ev.Stats != nil {
			s.Stats = *ev.Stats
		}
	}
}

// FatalError returns the first job-ending error event, if any.
func (s Summary) FatalError() (Event, bool) {
	for _, ev := range s.Errors {
		if ev.ErrorKind.Fatal() {
			return ev, true
		}
	}
	return Event{}, false
}

func (s Summary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Drain consumes events until the stream closes, calling fn for each one.
func Drain(events <-chan Event, fn func(Event)) Summary {
	var s Summary
	for ev := range events {
		s.Apply(ev)
		if fn != nil {
			fn(ev)
		}
	}
	return s
}
