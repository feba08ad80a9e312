// Package atlaserr defines Atlas's error taxonomy. Wrap attaches one of
// these kinds to an underlying cause, which stays reachable through
// errors.Is/errors.As via Unwrap.
package atlaserr

import "errors"

// Kind discriminates the taxonomy described in the run-time error handling
// design: which subsystem produced the failure.
type Kind int

const (
	// ExternalCommandFailure means a subprocess or SSH command exited
	// non-zero; the error carries the full command line and captured
	// stdout/stderr.
	ExternalCommandFailure Kind = iota
	// ConnectionFailure means a machine could not be reached at all,
	// as opposed to reached-but-command-failed.
	ConnectionFailure
	// JobNotFound means a queue operation referenced a row that does
	// not exist.
	JobNotFound
	// QueueFailure means the persistent store itself could not
	// service a request.
	QueueFailure
	// DataFormatFailure means on-disk or wire data did not match the
	// expected shape (a malformed CSV row, a truncated binary record).
	DataFormatFailure
	// ConfigConflict means a new run was requested while a different
	// run's completed jobs are still on record.
	ConfigConflict
)

func (k Kind) String() string {
	switch k {
	case ExternalCommandFailure:
		return "external_command_failure"
	case ConnectionFailure:
		return "connection_failure"
	case JobNotFound:
		return "job_not_found"
	case QueueFailure:
		return "queue_failure"
	case DataFormatFailure:
		return "data_format_failure"
	case ConfigConflict:
		return "config_conflict"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a taxonomy error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a taxonomy error around cause. A nil cause returns nil, so
// callers can write `return atlaserr.Wrap(Kind, "...", err)` unconditionally
// at the end of a function.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or anything it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
