package errors

import "errors"

// CodeOf extracts the ErrorCode from err if it is (or wraps) a DiffError.
func CodeOf(err error) (ErrorCode, bool) {
	var diffErr *DiffError
	if errors.As(err, &diffErr) {
		return diffErr.Code, diffErr.Code != ""
	}
	return "", false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsDuplicateIdentity reports whether err is a duplicate-identity mutation error.
func IsDuplicateIdentity(err error) bool {
	return IsCode(err, ErrCodeDuplicateIdentity)
}

// IsMissingAnchor reports whether err is a missing-anchor mutation error.
func IsMissingAnchor(err error) bool {
	return IsCode(err, ErrCodeMissingAnchor)
}

// IsInvariantViolation reports whether err is a diff-engine invariant
// violation. These indicate a bug in the kit, not bad caller input.
func IsInvariantViolation(err error) bool {
	return IsCode(err, ErrCodeInvariantViolation)
}

// WrapOpComponent provides a convenience helper to wrap errors with consistent
// Op and Component propagation. If err is nil, returns nil.
func WrapOpComponent(err error, op Operation, component string) error {
	if err == nil {
		return nil
	}
	return NewWithComponent(op, component, err)
}
