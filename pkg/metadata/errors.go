package metadata

import "errors"

// StoreError represents a domain error from storage-core operations.
//
// These are business logic errors (folder not found, permission denied,
// quota exceeded, etc.) as opposed to infrastructure errors (disk failure,
// corrupted database). Protocol adapters translate StoreError codes to
// their own error surfaces (HTTP status codes, WebDAV conditions, etc.).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Entity names the folder/file/group/user path or identifier related
	// to the error, if applicable. This helps with debugging and error
	// reporting.
	Entity string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Entity != "" {
		return e.Message + ": " + e.Entity
	}
	return e.Message
}

// ErrorCode represents the category of a storage-core error.
type ErrorCode int

const (
	// ErrNotFound indicates a referenced user/folder/file/group/version
	// does not exist, or a path segment could not be resolved
	ErrNotFound ErrorCode = iota

	// ErrPermissionDenied indicates the principal lacks the capability
	// required for the attempted operation
	ErrPermissionDenied

	// ErrDuplicateName indicates a sibling with the requested name already
	// exists at the target level. Folders and files share one namespace
	// per parent folder.
	ErrDuplicateName

	// ErrQuotaExceeded indicates the owning user class's remaining quota
	// is insufficient for the requested write
	ErrQuotaExceeded

	// ErrIOFailure indicates a physical blob read/write error. The
	// underlying cause is wrapped.
	ErrIOFailure

	// ErrInvariant indicates an operation that would violate a structural
	// invariant: deleting a root folder, removing the last version of a
	// file, stripping the owner's permissions, a permission entry without
	// exactly one subject
	ErrInvariant
)

// NotFound builds a StoreError with code ErrNotFound.
func NotFound(message, entity string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: message, Entity: entity}
}

// PermissionDenied builds a StoreError with code ErrPermissionDenied.
func PermissionDenied(message, entity string) *StoreError {
	return &StoreError{Code: ErrPermissionDenied, Message: message, Entity: entity}
}

// DuplicateName builds a StoreError with code ErrDuplicateName.
func DuplicateName(message, entity string) *StoreError {
	return &StoreError{Code: ErrDuplicateName, Message: message, Entity: entity}
}

// QuotaExceeded builds a StoreError with code ErrQuotaExceeded.
func QuotaExceeded(message string) *StoreError {
	return &StoreError{Code: ErrQuotaExceeded, Message: message}
}

// Invariant builds a StoreError with code ErrInvariant.
func Invariant(message, entity string) *StoreError {
	return &StoreError{Code: ErrInvariant, Message: message, Entity: entity}
}

// CodeOf extracts the ErrorCode from an error chain.
//
// The second return value is false when the error is not a StoreError,
// meaning an infrastructure failure that should be surfaced as ErrIOFailure
// or passed through unchanged.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given storage-core error code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
