package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for callers and pollers.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindUnsupportedFormat ErrorKind = "UnsupportedFormatError"
	KindEmptyContent      ErrorKind = "EmptyContentError"
	KindBackend           ErrorKind = "BackendError"
	KindNotFound          ErrorKind = "NotFound"
	KindInternal          ErrorKind = "InternalError"
)

// Common application errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyContent      = errors.New("empty content")
	ErrBackend           = errors.New("analysis backend error")
	ErrNotFound          = errors.New("resource not found")
	ErrInternal          = errors.New("internal error")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:        ErrValidation,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindEmptyContent:      ErrEmptyContent,
	KindBackend:           ErrBackend,
	KindNotFound:          ErrNotFound,
	KindInternal:          ErrInternal,
}

// JobError carries a kind, a poller-safe message and an optional cause.
type JobError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrValidation) match a JobError of the same kind.
func (e *JobError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Error constructors
func NewJobError(kind ErrorKind, message string, cause error) *JobError {
	return &JobError{Kind: kind, Message: message, Cause: cause}
}

func Validationf(format string, args ...any) error {
	return NewJobError(KindValidation, fmt.Sprintf(format, args...), nil)
}

func EmptyContentf(format string, args ...any) error {
	return NewJobError(KindEmptyContent, fmt.Sprintf(format, args...), nil)
}

func BackendError(message string, cause error) error {
	return NewJobError(KindBackend, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf maps any error onto the taxonomy; unknown errors are Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// MessageOf returns the text shown to pollers: the JobError message when present,
// otherwise the full error string.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var je *JobError
	if errors.As(err, &je) {
		if je.Cause != nil {
			return je.Message + ": " + je.Cause.Error()
		}
		return je.Message
	}
	return err.Error()
}
