package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/rolegate/internal/errdefs"
	"github.com/go-playground/validator/v10"
)

// Status is the activation state of a user
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// User is a console account with exactly one assigned role
type User struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	RoleID    string    `json:"roleId"` // Reference into the role store, checked at write time
	Status    Status    `json:"status" validate:"oneof=Active Inactive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Active reports whether the user may be authorized at all
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// Clone returns a copy of the user
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// String returns a short description of the user
func (u *User) String() string {
	return fmt.Sprintf("user:%s(%s)", u.ID, u.Email)
}

// Validate checks the user's own fields. The role reference is resolved by the
// store that owns both collections.
func (u *User) Validate() error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate user: %w", err)
	}

	fe := fieldErrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return errdefs.NewValidationError(errdefs.MissingField, field, field+" is required")
	case "email":
		return errdefs.NewValidationError(errdefs.InvalidEmail, field, fmt.Sprintf("%q is not a valid email address", u.Email))
	case "oneof":
		return errdefs.NewValidationError(errdefs.InvalidStatus, field, fmt.Sprintf("status must be %s or %s", StatusActive, StatusInactive))
	}
	return errdefs.NewValidationError(errdefs.MissingField, field, fe.Error())
}

func jsonFieldName(structField string) string {
	switch structField {
	case "ID":
		return "id"
	case "Name":
		return "name"
	case "Email":
		return "email"
	case "Status":
		return "status"
	}
	return structField
}
