package common

import "fmt"

// MissingIdentifierError indicates a record was submitted without its
// mandatory identifier.
type MissingIdentifierError struct {
	Field string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("missing identifier: %s", e.Field)
}

// NewMissingIdentifierError creates a new MissingIdentifierError.
func NewMissingIdentifierError(field string) *MissingIdentifierError {
	return &MissingIdentifierError{Field: field}
}

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NoPrivilegesError indicates a destructive operation was attempted by
// an identity not allowed to perform it.
type NoPrivilegesError struct {
	Message string
}

func (e *NoPrivilegesError) Error() string {
	if e.Message == "" {
		return "no privileges"
	}
	return e.Message
}

// NewNoPrivilegesError creates a new NoPrivilegesError.
func NewNoPrivilegesError(message string) *NoPrivilegesError {
	return &NoPrivilegesError{Message: message}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}
