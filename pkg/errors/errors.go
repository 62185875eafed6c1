// Package errors defines the sentinel failures shared by the search service
// and how each one surfaces over HTTP.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrIndexNotReady = errors.New("index not ready")
	ErrCorpusEmpty   = errors.New("corpus is empty")
	ErrUnavailable   = errors.New("feature unavailable")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")
)

// statusBySentinel is consulted in order; the first sentinel err wraps wins.
var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrCorpusEmpty, http.StatusUnprocessableEntity},
	{ErrIndexNotReady, http.StatusServiceUnavailable},
	{ErrUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with a client-facing message and status.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// InvalidInputf is shorthand for a 400 AppError wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

// Unavailablef reports a disabled or unconfigured feature as a 503.
func Unavailablef(format string, args ...any) *AppError {
	return Newf(ErrUnavailable, http.StatusServiceUnavailable, format, args...)
}

// DeadlineError is returned when op overran its limit. It matches both
// ErrTimeout and context.DeadlineExceeded under errors.Is.
type DeadlineError struct {
	Op    string
	Limit time.Duration
	Cause error
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("%s: %v after %v", e.Op, ErrTimeout, e.Limit)
}

func (e *DeadlineError) Unwrap() []error {
	return []error{ErrTimeout, e.Cause}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text safe to return to a client: the AppError
// message when there is one, the bare error for 4xx and 503 failures, and a
// generic string for everything else.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if HTTPStatusCode(err) == http.StatusInternalServerError {
		return ErrInternal.Error()
	}
	return err.Error()
}
