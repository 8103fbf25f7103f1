package apperr

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed or out-of-range input, rejected before
// any mutation takes place.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StateConflictError marks an operation disallowed by the position's
// current status or shape.
type StateConflictError struct {
	Msg string
}

func (e *StateConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...interface{}) error {
	return &StateConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a referenced entity that does not exist or does not
// belong to the caller.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// FeedError marks an external position feed failure. It aborts the current
// sync run but never crashes the scheduler.
type FeedError struct {
	Msg       string
	Retryable bool
	Err       error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FeedError) Unwrap() error { return e.Err }

func Feed(msg string, retryable bool, err error) error {
	return &FeedError{Msg: msg, Retryable: retryable, Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsStateConflict(err error) bool {
	var e *StateConflictError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsFeed(err error) bool {
	var e *FeedError
	return errors.As(err, &e)
}

// IsRetryable reports whether err is a feed error worth retrying on the
// next scheduled tick.
func IsRetryable(err error) bool {
	var e *FeedError
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
