package fs

import (
	"errors"
	"fmt"
)

// Error represents a domain error from contract-layer or backend operations.
//
// These are business logic errors (path invalid, destination exists, etc.)
// as opposed to infrastructure errors (network failure, disk error), which
// backends wrap with fmt.Errorf and propagate as plain errors.
//
// Callers classify errors by code via errors.As (see HasCode), never by
// message text.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a filesystem error.
//
// The contract layer performs no retries and no recovery; every failure is
// surfaced verbatim to the caller with enough context to act on.
type ErrorCode int

const (
	// ErrInvalidArgument indicates a malformed identifier or option set.
	// This is a caller error and is never retried.
	ErrInvalidArgument ErrorCode = iota

	// ErrInvalidPath indicates a path failed validation or does not belong
	// to the backend it was given to.
	ErrInvalidPath

	// ErrUnsupportedBackend indicates no backend is bound to the scheme.
	// This is a configuration error.
	ErrUnsupportedBackend

	// ErrNotFound indicates the file or directory does not exist
	ErrNotFound

	// ErrAlreadyExists indicates a file or directory with the name already exists
	ErrAlreadyExists

	// ErrNotEmpty indicates a directory is not empty (cannot be removed or
	// overwritten by rename)
	ErrNotEmpty

	// ErrStructuralMismatch indicates exactly one of two paths is a
	// directory where both must agree (rename source/destination)
	ErrStructuralMismatch

	// ErrParentNotDirectory indicates the destination parent exists but is
	// a plain file
	ErrParentNotDirectory

	// ErrInternal indicates inconsistent backend-supplied defaults or a
	// backend construction-time programmer error. Fatal, signals backend
	// misconfiguration.
	ErrInternal

	// ErrUnsupported indicates the backend declined to implement an
	// optional capability
	ErrUnsupported
)

// String returns the category name used in logs and rendered errors.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrInvalidPath:
		return "invalid path"
	case ErrUnsupportedBackend:
		return "unsupported backend"
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrNotEmpty:
		return "not empty"
	case ErrStructuralMismatch:
		return "structural mismatch"
	case ErrParentNotDirectory:
		return "parent not a directory"
	case ErrInternal:
		return "internal error"
	case ErrUnsupported:
		return "unsupported operation"
	default:
		return "unknown"
	}
}

// Errorf builds an *Error with the given code and formatted message.
// Path may be empty when the error is not tied to a single path.
func Errorf(code ErrorCode, path string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// HasCode reports whether err (or any error it wraps) is an *Error with the
// given code.
func HasCode(err error, code ErrorCode) bool {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Code == code
	}
	return false
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return HasCode(err, ErrNotFound)
}
