package types

import "fmt"

// ValidationError reports malformed or out-of-range input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PermissionError reports that the actor may not perform the action.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// ConflictError reports a duplicate or a state transition that is no longer allowed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError reports a missing rental, review, report or user.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NewPermissionError(format string, args ...interface{}) error {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}
