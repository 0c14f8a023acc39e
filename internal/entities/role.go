package entities

import (
	"fmt"
	"time"

	"github.com/asakaida/rolegate/internal/errdefs"
	"github.com/hashicorp/go-multierror"
)

// Role is a named bundle of per-resource permission levels
// Example: "Security Analyst" with users=edit and view everywhere else
type Role struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`        // Unique, case-sensitive
	Permissions Permissions `json:"permissions"` // Total mapping over Resources()
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Level returns the level the role grants on r
func (r *Role) Level(res Resource) PermissionLevel {
	return r.Permissions.Level(res)
}

// Clone returns a deep copy of the role
func (r *Role) Clone() *Role {
	if r == nil {
		return nil
	}
	c := *r
	c.Permissions = r.Permissions.Clone()
	return &c
}

// String returns a short description of the role
func (r *Role) String() string {
	return fmt.Sprintf("role:%s(%s)", r.ID, r.Name)
}

// Validate checks if the role is well formed
func (r *Role) Validate() error {
	if r.ID == "" {
		return errdefs.NewValidationError(errdefs.MissingField, "id", "role ID is required")
	}
	if r.Name == "" {
		return errdefs.NewValidationError(errdefs.MissingField, "name", "role name is required")
	}
	if err := CheckPermissions(r.Permissions); err != nil {
		return err
	}
	if !r.Permissions.Total() {
		return errdefs.NewValidationError(errdefs.InvalidPermission, "permissions", "every resource must have a level")
	}
	return nil
}

// CheckPermissions validates a partial permission mapping.
// All unknown resources and levels are reported together.
func CheckPermissions(partial map[Resource]PermissionLevel) error {
	var result *multierror.Error
	for _, res := range sortedResources(partial) {
		level := partial[res]
		if !res.Valid() {
			result = multierror.Append(result, fmt.Errorf("unknown resource %q", res))
			continue
		}
		if !level.Valid() {
			result = multierror.Append(result, fmt.Errorf("unknown level %q for resource %q", level, res))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return &errdefs.ValidationError{
			Code:    errdefs.InvalidPermission,
			Field:   "permissions",
			Message: "invalid permission mapping",
			Err:     err,
		}
	}
	return nil
}
