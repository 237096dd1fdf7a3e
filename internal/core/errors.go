package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatStale      ErrorCategory = "stale"      // Lost a conditional-write race
	ErrCatUpstream   ErrorCategory = "upstream"   // Session runtime failure
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatState      ErrorCategory = "state"      // State corruption
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrStaleStage creates the error returned when a conditional stage
// transition loses the race: the launch is no longer in the stage the
// caller observed. Clients treat it as "stage already advanced".
func ErrStaleStage(launchID string, expected, actual Stage) *DomainError {
	return &DomainError{
		Category: ErrCatStale,
		Code:     CodeStaleStage,
		Message:  fmt.Sprintf("launch %s is in stage %q, not %q", launchID, actual, expected),
		Details: map[string]interface{}{
			"expected_stage": string(expected),
			"actual_stage":   string(actual),
		},
	}
}

// ErrUpstream creates a session runtime error.
func ErrUpstream(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatUpstream,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsStaleStage checks if an error is a lost-transition-race error.
func IsStaleStage(err error) bool {
	return IsCategory(err, ErrCatStale)
}

// Predefined error codes
const (
	CodeStaleStage      = "STALE_STAGE"
	CodeCouncilNotFound = "COUNCIL_NOT_FOUND"
	CodeLaunchNotFound  = "LAUNCH_NOT_FOUND"
	CodeInvalidStage    = "INVALID_STAGE"
	CodeStateCorrupted  = "STATE_CORRUPTED"

	// Validation error codes
	CodeEmptyPrompt     = "EMPTY_PROMPT"
	CodePromptTooLong   = "PROMPT_TOO_LONG"
	CodeNoMembers       = "NO_MEMBERS"
	CodeDuplicateMember = "DUPLICATE_MEMBER"
	CodeBadChairman     = "CHAIRMAN_NOT_MEMBER"

	// Session error codes
	CodeSessionFailed    = "SESSION_FAILED"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeEmptySynthesis   = "EMPTY_SYNTHESIS"
	CodeSynthesisStuck   = "SYNTHESIS_STUCK"
	CodeAgentUnavailable = "AGENT_UNAVAILABLE"
)

// MaxPromptLength is the maximum allowed prompt length.
const MaxPromptLength = 100000
