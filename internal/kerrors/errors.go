// Package kerrors defines the error taxonomy shared by the blob store,
// metadata store, unit of work and HTTP surface.
//
// These are business-level errors (not found, lock timeout, ...) as
// opposed to raw infrastructure errors (a pgx network failure, an os.PathError).
// The HTTP layer maps a Code to a status code at the boundary; nothing
// below internal/httpapi should know about status codes.
package kerrors

import "fmt"

// Code categorizes an Error.
type Code int

const (
	// Internal is the catch-all for anything that doesn't fit another code.
	Internal Code = iota

	// Validation indicates malformed input: a bad filename, extension or
	// path, or a missing required field. Never retried.
	Validation

	// NotFound indicates a metadata id is unknown, or a blob is missing
	// while its metadata row exists.
	NotFound

	// AlreadyExists indicates a uniqueness collision on (path, filename,
	// extension) or on id.
	AlreadyExists

	// LockTimeout indicates a blob lock could not be acquired before the
	// configured timeout. Safe to retry.
	LockTimeout

	// BlobStoreUnavailable indicates the blob storage directory is
	// unreadable, out of space, or otherwise inaccessible.
	BlobStoreUnavailable

	// BlobWriteFailed indicates a staging write or rename failed mid
	// commit. The caller should trigger reconciliation.
	BlobWriteFailed

	// MetaStoreError wraps an underlying database error.
	MetaStoreError
)

// Error is the concrete error type of this taxonomy, returned by the blob
// store, the metadata store sessions and the service layer. Wrap an
// underlying cause with Err so callers can still
// errors.Unwrap/errors.Is through it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error carrying an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given Code. Mirrors errors.Is
// semantics without requiring callers to import this package's Error
// type directly.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ke, ok := err.(*Error); ok {
			e = ke
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Code == code
}

// NewValidationError builds a Validation error.
func NewValidationError(message string) *Error {
	return New(Validation, message)
}

// NewNotFoundError builds a NotFound error for the given entity.
func NewNotFoundError(entity, id string) *Error {
	return New(NotFound, fmt.Sprintf("%s not found: %s", entity, id))
}

// NewAlreadyExistsError builds an AlreadyExists error for a (path,
// filename, extension) triple.
func NewAlreadyExistsError(path, filename, extension string) *Error {
	return New(AlreadyExists, fmt.Sprintf("file already exists at %s%s.%s", path, filename, extension))
}

// NewLockTimeoutError builds a LockTimeout error for the given blob id.
func NewLockTimeoutError(id string) *Error {
	return New(LockTimeout, fmt.Sprintf("timed out acquiring lock on blob %s", id))
}

// NewBlobStoreUnavailableError wraps a filesystem-level failure.
func NewBlobStoreUnavailableError(err error) *Error {
	return Wrap(BlobStoreUnavailable, "blob store unavailable", err)
}

// NewBlobWriteFailedError wraps a commit-time write/rename failure.
func NewBlobWriteFailedError(id string, err error) *Error {
	return Wrap(BlobWriteFailed, fmt.Sprintf("failed to commit blob %s", id), err)
}

// NewMetaStoreError wraps an underlying database error.
func NewMetaStoreError(err error) *Error {
	return Wrap(MetaStoreError, "metadata store error", err)
}
