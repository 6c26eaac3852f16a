package aggregates

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across domains.
type ErrorCode string

const (
	CodeValidation ErrorCode = "validation"
	CodeNotFound   ErrorCode = "not_found"
	CodeConflict   ErrorCode = "conflict"
	CodeInternal   ErrorCode = "internal"

	// Content lineage taxonomy.
	CodeLineageMismatch            ErrorCode = "lineage_mismatch"
	CodeCycleDetected              ErrorCode = "cycle_detected"
	CodeUnknownVersion             ErrorCode = "unknown_version"
	CodeUnknownClass               ErrorCode = "unknown_class"
	CodeVersionPinned              ErrorCode = "version_pinned"
	CodeDuplicateAssignment        ErrorCode = "duplicate_assignment"
	CodeInvalidTransition          ErrorCode = "invalid_transition"
	CodeAlreadyFinalized           ErrorCode = "already_finalized"
	CodeConcurrentFinalizeConflict ErrorCode = "concurrent_finalize_conflict"
	CodeStorageFailure             ErrorCode = "storage_failure"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	// Refs names the offending identifiers (e.g. "version" -> "ID-002").
	Refs map[string]string
	// Retryable is set for transient storage failures (serialization, deadlock, lock timeout).
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	var b strings.Builder
	switch {
	case op != "" && msg != "":
		fmt.Fprintf(&b, "%s: %s (%s)", op, msg, e.Code)
	case op != "":
		fmt.Fprintf(&b, "%s (%s)", op, e.Code)
	case msg != "":
		fmt.Fprintf(&b, "%s (%s)", msg, e.Code)
	default:
		b.WriteString(string(e.Code))
	}
	if len(e.Refs) > 0 {
		keys := make([]string, 0, len(e.Refs))
		for k := range e.Refs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Refs[k])
		}
		b.WriteString("]")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// NewRefError builds an aggregate error carrying the offending identifiers.
// refs is a flat list of key/value pairs.
func NewRefError(code ErrorCode, op, message string, refs ...string) error {
	e := &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
	}
	if len(refs) > 0 {
		e.Refs = make(map[string]string, len(refs)/2)
		for i := 0; i+1 < len(refs); i += 2 {
			e.Refs[refs[i]] = refs[i+1]
		}
	}
	return e
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// StorageFailure wraps an infrastructure error.
func StorageFailure(op string, err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:      CodeStorageFailure,
		Op:        strings.TrimSpace(op),
		Message:   err.Error(),
		Retryable: retryable,
		Cause:     err,
	}
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// RefsOf returns the offending identifiers attached to err, if any.
func RefsOf(err error) map[string]string {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return nil
	}
	return aggErr.Refs
}

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Retryable
}
