package errdefs

import (
	"errors"
	"fmt"
)

// Code names a specific failure. Codes satisfy error so callers can match with
// errors.Is(err, errdefs.DuplicateName) regardless of the error class.
type Code string

func (c Code) Error() string { return string(c) }

const (
	DuplicateName     Code = "DuplicateName"
	InvalidPermission Code = "InvalidPermission"
	RoleInUse         Code = "RoleInUse"
	MissingField      Code = "MissingField"
	InvalidEmail      Code = "InvalidEmail"
	InvalidStatus     Code = "InvalidStatus"
	RoleNotFound      Code = "RoleNotFound"
	NotFound          Code = "NotFound"
)

// ValidationError reports bad input shape: a missing field, a malformed email,
// an enum value outside its set.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
	Err     error // Underlying cause, may aggregate several failures
}

// NewValidationError creates a validation error for field
func NewValidationError(code Code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid value"
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Code)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

// NotFoundError reports an unknown id
type NotFoundError struct {
	Code  Code
	Model string
	ID    string
}

// NewNotFound creates a NotFound error for model
func NewNotFound(model, id string) *NotFoundError {
	return &NotFoundError{Code: NotFound, Model: model, ID: id}
}

// NewRoleNotFound reports a role reference that does not resolve
func NewRoleNotFound(id string) *NotFoundError {
	return &NotFoundError{Code: RoleNotFound, Model: "role", ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found (%s)", e.Model, e.ID, e.Code)
}

func (e *NotFoundError) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

// ConflictError reports a state conflict the caller has to resolve first
type ConflictError struct {
	Code    Code
	Model   string
	Message string
}

// NewConflict creates a conflict error for model
func NewConflict(code Code, model, message string) *ConflictError {
	return &ConflictError{Code: code, Model: model, Message: message}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Model, e.Message, e.Code)
}

func (e *ConflictError) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// CodeOf extracts the failure code from err, empty when err is not from this package
func CodeOf(err error) Code {
	var (
		v  *ValidationError
		nf *NotFoundError
		c  *ConflictError
	)
	switch {
	case errors.As(err, &v):
		return v.Code
	case errors.As(err, &nf):
		return nf.Code
	case errors.As(err, &c):
		return c.Code
	}
	return ""
}
