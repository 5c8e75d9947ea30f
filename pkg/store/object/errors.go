package object

import "errors"

// StoreError represents a failure reported by a container backend.
//
// These are the storage engine's own error categories (object missing,
// handle invalid, key already present, ...). Higher layers classify them
// with errors.As and map them onto their own taxonomy.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// ID is the object the error relates to (UndefinedID if none)
	ID ObjectID
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID.IsDefined() {
		return e.Message + ": object " + e.ID.String()
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the object or key does not exist at the
	// requested read context
	ErrNotFound ErrorCode = iota + 1

	// ErrAlreadyExists indicates an object ID or exclusive key is taken
	ErrAlreadyExists

	// ErrInvalidHandle indicates the handle was never issued, was already
	// closed, or is the undefined sentinel
	ErrInvalidHandle

	// ErrWrongMode indicates a write through a read handle or a read
	// through a write handle
	ErrWrongMode

	// ErrInvalidArgument indicates malformed parameters (undefined IDs,
	// empty keys, unknown object types)
	ErrInvalidArgument

	// ErrNotSupported indicates the backend does not implement the call
	ErrNotSupported

	// ErrIOError indicates the backend failed to read or write
	ErrIOError

	// ErrClosed indicates the container itself has been closed
	ErrClosed
)

// String returns a short name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrInvalidHandle:
		return "invalid_handle"
	case ErrWrongMode:
		return "wrong_mode"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrNotSupported:
		return "not_supported"
	case ErrIOError:
		return "io_error"
	case ErrClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NewError builds a StoreError that is not tied to an object.
func NewError(code ErrorCode, message string) *StoreError {
	return &StoreError{Code: code, Message: message, ID: UndefinedID}
}

// NewObjectError builds a StoreError about object id.
func NewObjectError(code ErrorCode, message string, id ObjectID) *StoreError {
	return &StoreError{Code: code, Message: message, ID: id}
}

// IsCode reports whether err wraps a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code == code
	}
	return false
}
