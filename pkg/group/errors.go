package group

import (
	"errors"
	"fmt"
)

// ErrorCode classifies group operation failures.
type ErrorCode int

const (
	// ErrPathNotFound indicates an intermediate or final path component
	// does not exist.
	ErrPathNotFound ErrorCode = iota + 1

	// ErrDuplicateName indicates the parent already has a link with the
	// requested name.
	ErrDuplicateName

	// ErrStore indicates an underlying storage operation failed. The
	// store's own error is available through Unwrap.
	ErrStore

	// ErrIntegrity indicates a stored cross-reference record failed
	// checksum verification or could not be decoded.
	ErrIntegrity

	// ErrInvalidArgument indicates a malformed request.
	ErrInvalidArgument
)

func (c ErrorCode) String() string {
	switch c {
	case ErrPathNotFound:
		return "PathNotFound"
	case ErrDuplicateName:
		return "DuplicateName"
	case ErrStore:
		return "StoreError"
	case ErrIntegrity:
		return "IntegrityError"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Code ErrorCode

	// Op names the step that failed, e.g. "create primary object"
	Op string

	// Path is the path or link name being processed, if any
	Path string

	// Err is the underlying cause, usually an *object.StoreError
	Err error
}

func (e *Error) Error() string {
	msg := e.Code.String() + ": " + e.Op
	if e.Path != "" {
		msg += " " + fmt.Sprintf("%q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// storeFailure wraps a storage error. Errors that are already classified
// are passed through unchanged so the first classification wins.
func storeFailure(op, path string, err error) error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return err
	}
	return newError(ErrStore, op, path, err)
}

// CodeOf returns the classification of err. A nil error has code 0; an
// unclassified error is reported as ErrStore.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return 0
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return ErrStore
}

// IsCode reports whether err is classified as code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
