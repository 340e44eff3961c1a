package model

import "errors"

// ErrorKind classifies job failures reported to observers.
type ErrorKind string

const (
	ErrConfigInvalid       ErrorKind = "config_invalid"
	ErrDirectoryUnreadable ErrorKind = "directory_unreadable"
	ErrDirectoryLocked     ErrorKind = "directory_locked"
	ErrConversionFailed    ErrorKind = "conversion_failed"
	ErrDeleteFailed        ErrorKind = "delete_failed"
	ErrAlreadyRunning      ErrorKind = "already_running"
	ErrInternal            ErrorKind = "internal"
)

// Fatal reports whether the kind ends the whole job rather than one file.
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrConversionFailed, ErrDeleteFailed:
		return false
	default:
		return true
	}
}

type JobError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *JobError) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, or ErrInternal when err carries none.
func KindOf(err error) ErrorKind {
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return ErrInternal
}
