// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// Registration errors
	ErrDuplicateRegistration = errors.New("identity already registered")
	ErrRoleConflict          = errors.New("role conflict")

	// Task errors
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAssignee   = errors.New("invalid assignee")
	ErrInvalidDeadline   = errors.New("deadline must be in the future")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrStorage            = errors.New("storage error")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "task", "reminder"
	Op      string // Operation that failed, e.g., "Create", "Accept"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Register", ErrDuplicateRegistration, "user already registered")
	ErrPhoneTaken        = NewDomainError("user", "Register", ErrDuplicateRegistration, "phone number already registered")
	ErrRectorExists      = NewDomainError("user", "Register", ErrRoleConflict, "a rector is already registered")
	ErrRoleImmutable     = NewDomainError("user", "Update", ErrRoleConflict, "role cannot be changed after registration")
)

// Task domain errors
var (
	ErrTaskNotFound     = NewDomainError("task", "Find", ErrNotFound, "task not found")
	ErrNotCreator       = NewDomainError("task", "Authorize", ErrPermissionDenied, "only the task creator may do this")
	ErrNotAssignee      = NewDomainError("task", "Authorize", ErrPermissionDenied, "user is not assigned to this task")
	ErrTaskNotPending   = NewDomainError("task", "Accept", ErrInvalidTransition, "task can only be accepted from pending")
	ErrTaskNotAccepted  = NewDomainError("task", "Complete", ErrInvalidTransition, "task can only be completed after acceptance")
	ErrNoAssignees      = NewDomainError("task", "Create", ErrInvalidAssignee, "task must have at least one assignee")
	ErrAssigneeNotStaff = NewDomainError("task", "Create", ErrInvalidAssignee, "assignee must be a registered staff member")
	ErrDeadlineInPast   = NewDomainError("task", "Validate", ErrInvalidDeadline, "deadline must be strictly in the future")
)

// Notification domain errors
var (
	ErrNotificationFailed = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
	ErrQueueClosed        = NewDomainError("notification", "Enqueue", ErrServiceUnavailable, "notification queue is closed")
	ErrTelegramAPIFailed  = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied checks if the error is a permission error.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidDeadline) ||
		errors.Is(err, ErrInvalidAssignee)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
