package apierr

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var statusByCode = map[string]int{
	"validation":                   http.StatusBadRequest,
	"not_found":                    http.StatusNotFound,
	"unknown_version":              http.StatusNotFound,
	"unknown_class":                http.StatusNotFound,
	"conflict":                     http.StatusConflict,
	"duplicate_assignment":         http.StatusConflict,
	"version_pinned":               http.StatusConflict,
	"already_finalized":            http.StatusConflict,
	"concurrent_finalize_conflict": http.StatusConflict,
	"lineage_mismatch":             http.StatusUnprocessableEntity,
	"cycle_detected":               http.StatusUnprocessableEntity,
	"invalid_transition":           http.StatusUnprocessableEntity,
	"storage_failure":              http.StatusInternalServerError,
	"internal":                     http.StatusInternalServerError,
}

// StatusFor maps an error code to its HTTP status. Retryable storage failures
// become 503 so clients know a resubmission may succeed.
func StatusFor(code string, retryable bool) int {
	if retryable {
		return http.StatusServiceUnavailable
	}
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
