// Package job runs one conversion at a time on a background goroutine and
// reports progress as an ordered event stream.
package job

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgbatch/internal/convert"
	"imgbatch/internal/imagecodec"
	"imgbatch/internal/model"
	"imgbatch/internal/runstore"
)

var (
	ErrAlreadyRunning = &model.JobError{Kind: model.ErrAlreadyRunning, Detail: "a job is already running"}
	ErrFinished       = errors.New("runner already finished a job; reset it first")
)

const defaultBufferSize = 64

type Options struct {
	Codec  imagecodec.Codec
	Logger *slog.Logger
	// LockDir holds destination lock files; runstore.DefaultLockDir when empty.
	LockDir    string
	BufferSize int
	Now        func() time.Time
}

type Runner struct {
	mu    sync.Mutex
	state model.JobState
	jobID string
	done  chan struct{}

	codec   imagecodec.Codec
	logger  *slog.Logger
	lockDir string
	buffer  int
	now     func() time.Time
}

func NewRunner(opts Options) *Runner {
	r := &Runner{
		state:   model.JobIdle,
		codec:   opts.Codec,
		logger:  opts.Logger,
		lockDir: opts.LockDir,
		buffer:  opts.BufferSize,
		now:     opts.Now,
	}
	if r.codec == nil {
		r.codec = imagecodec.New()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.buffer <= 0 {
		r.buffer = defaultBufferSize
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Start launches cfg on a new worker and returns its event stream, which is
// closed after the terminal event. An invalid cfg yields a stream holding a
// single Failed event and leaves the runner idle.
func (r *Runner) Start(cfg model.JobConfig) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncLocked()

	switch r.state {
	case model.JobRunning:
		return nil, ErrAlreadyRunning
	case model.JobFinished:
		return nil, ErrFinished
	}

	jobID := uuid.NewString()
	if err := cfg.Validate(); err != nil {
		r.logger.Warn("job rejected", "job_id", jobID, "error", err)
		ch := make(chan Event, 1)
		ch <- Event{
			JobID:     jobID,
			Seq:       1,
			Kind:      EventFailed,
			Time:      r.now(),
			ErrorKind: model.KindOf(err),
			Message:   err.Error(),
		}
		close(ch)
		return ch, nil
	}

	if err := model.TransitionJobState(&r.state, model.JobRunning); err != nil {
		return nil, err
	}
	r.jobID = jobID
	r.done = make(chan struct{})

	events := make(chan Event, r.buffer)
	em := &emitter{jobID: jobID, events: events, now: r.now}
	go r.work(cfg, em, events, r.done)
	return events, nil
}

func (r *Runner) work(cfg model.JobConfig, em *emitter, events chan Event, done chan struct{}) {
	logger := r.logger.With("component", "job", "job_id", em.jobID)
	var stats *model.Stats

	defer close(events)
	defer func() {
		em.emit(Event{Kind: EventFinished, Stats: stats})
		logger.Info("job finished")
	}()
	defer close(done)
	defer func() {
		if v := recover(); v != nil {
			logger.Error("job panicked", "panic", v, "stack", string(debug.Stack()))
			em.Error(model.ErrInternal, "", fmt.Errorf("panic: %v", v))
		}
	}()

	em.emit(Event{Kind: EventStarted})
	logger.Info("job started",
		"source", cfg.SourceDir,
		"dest", cfg.DestDir,
		"format", cfg.TargetFormat,
		"delete_originals", cfg.DeleteOriginals,
	)

	lock, err := runstore.AcquireDirLock(r.lockDir, cfg.DestDir)
	switch {
	case errors.Is(err, runstore.ErrLocked):
		logger.Warn("destination locked by another job", "dest", cfg.DestDir, "error", err)
		em.Error(model.ErrDirectoryLocked, cfg.DestDir, err)
		return
	case err != nil:
		logger.Warn("destination lock unavailable; continuing unlocked", "dest", cfg.DestDir, "error", err)
	default:
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("release destination lock", "error", err)
			}
		}()
	}

	res, err := convert.New(r.codec, r.logger.With("job_id", em.jobID)).Run(cfg, em)
	stats = &res.Stats
	if err != nil {
		detail := ""
		var je *model.JobError
		if errors.As(err, &je) {
			detail = je.Detail
		}
		logger.Warn("job failed", "error", err)
		em.Error(model.KindOf(err), detail, err)
	}
}

// syncLocked moves a running job to Finished once its worker has exited.
func (r *Runner) syncLocked() {
	if r.state != model.JobRunning || r.done == nil {
		return
	}
	select {
	case <-r.done:
		_ = model.TransitionJobState(&r.state, model.JobFinished)
	default:
	}
}

func (r *Runner) State() model.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncLocked()
	return r.state
}

// JobID returns the ID of the current or most recent job.
func (r *Runner) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

// Wait blocks until the current job's worker has finished its pipeline. It
// returns immediately when no job was started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Reset returns a finished runner to Idle so it can start another job.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncLocked()

	switch r.state {
	case model.JobIdle:
		return nil
	case model.JobRunning:
		return ErrAlreadyRunning
	}
	if err := model.TransitionJobState(&r.state, model.JobIdle); err != nil {
		return err
	}
	r.done = nil
	return nil
}
