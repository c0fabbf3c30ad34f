package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailure indicates a single source file failed to parse
	ParseFailure ErrorCode = "PARSE_FAILURE"
	// ResolutionFailure indicates an import or dependency could not be resolved
	ResolutionFailure ErrorCode = "RESOLUTION_FAILURE"
	// ProbeTimeout indicates an instantiation or benchmark probe exceeded its bound
	ProbeTimeout ErrorCode = "PROBE_TIMEOUT"
	// VCSFailure indicates a checkpoint, apply, or rollback command failed
	VCSFailure ErrorCode = "VCS_FAILURE"
	// ConfigMissing indicates the routing or engine configuration file is absent
	ConfigMissing ErrorCode = "CONFIG_MISSING"
	// CacheFailure indicates the score cache could not be read or written
	CacheFailure ErrorCode = "CACHE_FAILURE"
	// LockHeld indicates another run holds the repository run lock
	LockHeld ErrorCode = "LOCK_HELD"
	// StateCorrupt indicates the persisted alignment state could not be decoded
	StateCorrupt ErrorCode = "STATE_CORRUPT"
	// InternalError indicates an unexpected failure
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// SuggestedAction is a next step attached to a user-visible failure.
// Every surfaced error names what was affected and what to try next.
type SuggestedAction struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description"`
	Safe        bool   `json:"safe"`
}

// AlignError represents an engine error with a stable code, the subject
// it affected, and suggested next actions
type AlignError struct {
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Subject   string            `json:"subject,omitempty"` // file, candidate, or fix affected
	Suggested []SuggestedAction `json:"suggested,omitempty"`
	cause     error
}

// New creates an AlignError with the given code and message
func New(code ErrorCode, message string) *AlignError {
	return &AlignError{Code: code, Message: message}
}

// Wrap creates an AlignError wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *AlignError {
	return &AlignError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *AlignError) Error() string {
	switch {
	case e.Subject != "" && e.cause != nil:
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Message, e.Subject, e.cause)
	case e.Subject != "":
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Subject)
	case e.cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause
func (e *AlignError) Unwrap() error {
	return e.cause
}

// WithSubject records the file, candidate, or fix the error affected
func (e *AlignError) WithSubject(subject string) *AlignError {
	e.Subject = subject
	return e
}

// WithAction appends a suggested next action
func (e *AlignError) WithAction(action SuggestedAction) *AlignError {
	e.Suggested = append(e.Suggested, action)
	return e
}

// CodeOf returns the ErrorCode carried by err, or InternalError if err is
// not an AlignError
func CodeOf(err error) ErrorCode {
	if ae, ok := err.(*AlignError); ok {
		return ae.Code
	}
	return InternalError
}
