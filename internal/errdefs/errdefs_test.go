package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_MatchByCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      Code
		otherCode Code
	}{
		{
			name:      "validation",
			err:       NewValidationError(InvalidEmail, "email", "bad shape"),
			code:      InvalidEmail,
			otherCode: MissingField,
		},
		{
			name:      "not found",
			err:       NewNotFound("user", "u1"),
			code:      NotFound,
			otherCode: RoleNotFound,
		},
		{
			name:      "role reference",
			err:       NewRoleNotFound("r1"),
			code:      RoleNotFound,
			otherCode: NotFound,
		},
		{
			name:      "conflict",
			err:       NewConflict(DuplicateName, "role", "name taken"),
			code:      DuplicateName,
			otherCode: RoleInUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("create: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.code)
			assert.NotErrorIs(t, wrapped, tt.otherCode)
			assert.Equal(t, tt.code, CodeOf(wrapped))
		})
	}
}

func TestErrors_Classes(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError(MissingField, "name", "required")))
	assert.False(t, IsValidation(NewNotFound("role", "x")))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", NewRoleNotFound("x"))))
	assert.True(t, IsConflict(NewConflict(RoleInUse, "role", "assigned to 2 users")))
	assert.False(t, IsConflict(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestValidationError_UnwrapsCause(t *testing.T) {
	cause := errors.New("level \"root\" is not defined")
	err := &ValidationError{Code: InvalidPermission, Field: "permissions", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, InvalidPermission)
	assert.Contains(t, err.Error(), "permissions")
	assert.Contains(t, err.Error(), "InvalidPermission")
}
