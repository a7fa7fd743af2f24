// Package errors provides custom error types for the diffable kit
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeDuplicateIdentity  ErrorCode = "DUPLICATE_IDENTITY"
	ErrCodeMissingAnchor      ErrorCode = "MISSING_ANCHOR"
	ErrCodeMissingIdentity    ErrorCode = "MISSING_IDENTITY"
	ErrCodeStorageFailure     ErrorCode = "STORAGE_FAILURE"
	ErrCodeEncodingFailure    ErrorCode = "ENCODING_FAILURE"
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	ErrCodeValidationFailure  ErrorCode = "VALIDATION_FAILURE"
)

// Operation represents the type of snapshot or apply operation
type Operation string

const (
	OpAppendSections Operation = "append_sections"
	OpInsertSections Operation = "insert_sections"
	OpMoveSection    Operation = "move_section"
	OpReloadSections Operation = "reload_sections"
	OpAppendItems    Operation = "append_items"
	OpInsertItems    Operation = "insert_items"
	OpMoveItem       Operation = "move_item"
	OpReloadItems    Operation = "reload_items"
	OpDiff           Operation = "diff"
	OpApply          Operation = "apply"
	OpEncode         Operation = "encode"
	OpDecode         Operation = "decode"
	OpSave           Operation = "save"
	OpLoad           Operation = "load"
	OpPrune          Operation = "prune"
	OpClose          Operation = "close"
)

// DiffError represents an error raised by a snapshot mutation, a diff
// computation, or an apply against the view boundary
type DiffError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "snapshot", "store")
	Component string

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error type
	Code ErrorCode

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *DiffError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// NewSnapshotError creates a DiffError for a failed snapshot mutation.
// Mutation errors are never retryable as-is; the caller must correct the
// input first.
func NewSnapshotError(op Operation, code ErrorCode, cause error) *DiffError {
	return &DiffError{
		Code:      code,
		Op:        op,
		Component: "snapshot",
		Err:       cause,
		Retryable: false,
	}
}

// NewStorageError creates a new storage-related DiffError
func NewStorageError(op Operation, cause error) *DiffError {
	return &DiffError{
		Code:      ErrCodeStorageFailure,
		Op:        op,
		Component: "store",
		Err:       cause,
		Retryable: true,
	}
}

// NewEncodingError creates a new wire-encoding DiffError
func NewEncodingError(op Operation, cause error) *DiffError {
	return &DiffError{
		Code:      ErrCodeEncodingFailure,
		Op:        op,
		Component: "wire",
		Err:       cause,
		Retryable: false,
	}
}

// NewInvariantError reports a post-diff replay mismatch. This is a
// programming-error class, distinct from recoverable input errors.
func NewInvariantError(op Operation, cause error) *DiffError {
	return &DiffError{
		Code:      ErrCodeInvariantViolation,
		Op:        op,
		Component: "diff",
		Err:       cause,
		Retryable: false,
	}
}

// NewValidationError creates a new validation-related DiffError
func NewValidationError(op Operation, cause error) *DiffError {
	return &DiffError{
		Code:      ErrCodeValidationFailure,
		Op:        op,
		Err:       cause,
		Retryable: false,
	}
}

// New creates a new DiffError
func New(op Operation, err error) *DiffError {
	return &DiffError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new DiffError with component information
func NewWithComponent(op Operation, component string, err error) *DiffError {
	return &DiffError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// IsRetryable checks if an error is a retryable DiffError
func IsRetryable(err error) bool {
	var diffErr *DiffError
	if errors.As(err, &diffErr) {
		return diffErr.Retryable
	}
	return false
}
