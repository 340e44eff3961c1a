package job

import (
	"time"

	"imgbatch/internal/model"
)

type EventKind string

const (
	EventStarted        EventKind = "started"
	EventFileCountKnown EventKind = "file_count_known"
	EventStatusText     EventKind = "status_text"
	EventImagePreview   EventKind = "image_preview"
	EventFileProcessed  EventKind = "file_processed"
	EventError          EventKind = "error"
	EventFailed         EventKind = "failed"
	EventFinished       EventKind = "finished"
)

// Event is one entry of a job's event stream. Which fields are set depends
// on Kind; Seq increases by one per event starting at 1.
type Event struct {
	JobID     string          `json:"job_id"`
	Seq       int             `json:"seq"`
	Kind      EventKind       `json:"kind"`
	Time      time.Time       `json:"time"`
	Count     int             `json:"count,omitempty"`
	Text      string          `json:"text,omitempty"`
	Path      string          `json:"path,omitempty"`
	ErrorKind model.ErrorKind `json:"error_kind,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Message   string          `json:"message,omitempty"`
	Stats     *model.Stats    `json:"stats,omitempty"`
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Kind == EventFinished || e.Kind == EventFailed
}

// emitter adapts the pipeline observer callbacks onto the event channel.
type emitter struct {
	jobID  string
	seq    int
	events chan<- Event
	now    func() time.Time
}

func (e *emitter) emit(ev Event) {
	e.seq++
	ev.JobID = e.jobID
	ev.Seq = e.seq
	ev.Time = e.now()
	e.events <- ev
}

func (e *emitter) FileCountKnown(n int) {
	e.emit(Event{Kind: EventFileCountKnown, Count: n})
}

func (e *emitter) StatusText(text string) {
	e.emit(Event{Kind: EventStatusText, Text: text})
}

func (e *emitter) ImagePreview(path string) {
	e.emit(Event{Kind: EventImagePreview, Path: path})
}

func (e *emitter) FileProcessed() {
	e.emit(Event{Kind: EventFileProcessed})
}

func (e *emitter) Error(kind model.ErrorKind, detail string, cause error) {
	ev := Event{Kind: EventError, ErrorKind: kind, Detail: detail}
	if cause != nil {
		ev.Message = cause.Error()
	}
	e.emit(ev)
}
