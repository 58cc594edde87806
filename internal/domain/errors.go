package domain

import (
	"errors"
	"fmt"

	"github.com/charliek/comfygcs/internal/constants"
)

// Sentinel errors
var (
	ErrNotConfigured    = errors.New("comfygcs not configured")
	ErrConfig           = errors.New("invalid configuration")
	ErrConfigMismatch   = errors.New("storage session already bound to different parameters")
	ErrNotFound         = errors.New("not found")
	ErrAuth             = errors.New("authentication failed")
	ErrIO               = errors.New("local I/O error")
	ErrUploadFailed     = errors.New("upload failed")
	ErrDownloadFailed   = errors.New("download failed")
	ErrStorage          = errors.New("storage error")
	ErrDecode           = errors.New("image decode failed")
	ErrEncode           = errors.New("image encode failed")
	ErrInvalidArgs      = errors.New("invalid arguments")
	ErrUserCancelled    = errors.New("operation cancelled by user")
	ErrFileSizeTooLarge = errors.New("file size exceeds limit")

	// ErrNoFilesFound is returned when a prefix selects no objects. It matches ErrNotFound.
	ErrNoFilesFound = fmt.Errorf("no files found: %w", ErrNotFound)
)

// ExitCodeError wraps an error with an exit code
type ExitCodeError struct {
	Err      error
	ExitCode int
}

func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// NewExitCodeError creates a new ExitCodeError
func NewExitCodeError(err error, code int) *ExitCodeError {
	return &ExitCodeError{Err: err, ExitCode: code}
}

// WrapWithExitCode wraps an error with an exit code based on the error type
func WrapWithExitCode(err error) *ExitCodeError {
	if err == nil {
		return nil
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	return &ExitCodeError{Err: err, ExitCode: errorToExitCode(err)}
}

// errorToExitCode maps errors to exit codes
func errorToExitCode(err error) int {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return constants.ExitNotConfigured
	case errors.Is(err, ErrConfigMismatch):
		return constants.ExitConfigMismatch
	case errors.Is(err, ErrConfig):
		return constants.ExitInvalidConfig
	case errors.Is(err, ErrAuth):
		return constants.ExitAuthFailed
	case errors.Is(err, ErrNotFound):
		return constants.ExitNotFound
	case errors.Is(err, ErrUploadFailed):
		return constants.ExitUploadFailed
	case errors.Is(err, ErrDownloadFailed):
		return constants.ExitDownloadFailed
	case errors.Is(err, ErrIO), errors.Is(err, ErrFileSizeTooLarge):
		return constants.ExitIOError
	case errors.Is(err, ErrStorage):
		return constants.ExitStorageError
	case errors.Is(err, ErrDecode):
		return constants.ExitDecodeFailed
	case errors.Is(err, ErrEncode):
		return constants.ExitEncodeFailed
	case errors.Is(err, ErrUserCancelled):
		return constants.ExitUserCancelled
	case errors.Is(err, ErrInvalidArgs):
		return constants.ExitInvalidArgs
	default:
		return constants.ExitUnknownError
	}
}

// GetExitCode returns the exit code for an error
func GetExitCode(err error) int {
	if err == nil {
		return constants.ExitSuccess
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	return errorToExitCode(err)
}

// Errorf creates a formatted error wrapping a sentinel error
func Errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
