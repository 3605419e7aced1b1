package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies domain errors so transport layers can map them to
// protocol-specific responses without string matching.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION"
	CodeInvalidInterval   ErrorCode = "INVALID_INTERVAL"
	CodeSlotConflict      ErrorCode = "SLOT_CONFLICT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeSpaceInactive     ErrorCode = "SPACE_INACTIVE"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeDeadlinePassed    ErrorCode = "DEADLINE_PASSED"

	// CodeConflict marks a transient optimistic-lock loss. It is retried
	// internally and never surfaced to API callers as-is.
	CodeConflict ErrorCode = "CONFLICT"
)

// Error is the domain error type shared by all engine components.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError reports malformed or out-of-policy input.
func NewValidationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewInvalidIntervalError reports a time range that violates the product's
// granularity rules.
func NewInvalidIntervalError(message string) *Error {
	return &Error{Code: CodeInvalidInterval, Message: message}
}

// NewSlotConflictError reports an interval overlapping an existing hold.
func NewSlotConflictError(message string) *Error {
	return &Error{Code: CodeSlotConflict, Message: message}
}

// NewNotFoundError reports a missing or invisible entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewSpaceInactiveError reports a booking attempt against a hidden space.
func NewSpaceInactiveError(id string) *Error {
	return &Error{Code: CodeSpaceInactive, Message: fmt.Sprintf("space %s is not accepting reservations", id)}
}

// NewInvalidTransitionError reports an action that is not legal from the
// reservation's current status.
func NewInvalidTransitionError(from, to string) *Error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewUnauthorizedError reports an actor without rights over the entity.
func NewUnauthorizedError(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// NewDeadlinePassedError reports a cancellation inside the lead-time window.
func NewDeadlinePassedError(message string) *Error {
	return &Error{Code: CodeDeadlinePassed, Message: message}
}

// NewConflictError reports a lost conditional write.
func NewConflictError(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// CodeOf extracts the domain error code from err, or "" if err is not a
// domain error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
