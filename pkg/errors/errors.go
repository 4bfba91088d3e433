// Package errors defines the error kinds shared by the index builder, its
// persistence adapters, and the CLI. Callers match kinds with errors.Is and
// map them to process exit codes with ExitCode.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrFormat       = errors.New("malformed index data")
	ErrIO           = errors.New("i/o failure")
	ErrBuild        = errors.New("index build failed")
	ErrInvalidInput = errors.New("invalid input")
)

// Exit codes returned by the CLI for each error kind.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitNotFound     = 3
	ExitFormat       = 4
	ExitIO           = 5
)

// AppError attaches a kind sentinel and a human-readable message to an
// optional underlying cause. Both Err and Cause are visible to errors.Is.
type AppError struct {
	Err     error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap records cause under the given kind.
func Wrap(sentinel error, cause error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any error in err's tree matches target. It lets callers
// that import this package avoid a second import of the standard errors.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrFormat):
		return ExitFormat
	case errors.Is(err, ErrIO):
		return ExitIO
	default:
		return ExitFailure
	}
}
