package entities

import (
	"fmt"

	"github.com/asakaida/rolegate/internal/errdefs"
)

// Snapshot is a serialisable copy of every role and user, both in creation order
type Snapshot struct {
	Roles []*Role `json:"roles"`
	Users []*User `json:"users"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Roles: make([]*Role, len(s.Roles)),
		Users: make([]*User, len(s.Users)),
	}
	for i, r := range s.Roles {
		out.Roles[i] = r.Clone()
	}
	for i, u := range s.Users {
		out.Users[i] = u.Clone()
	}
	return out
}

// Validate checks that the snapshot could have been produced by the stores:
// every entity is valid, ids and role names are unique, and every user
// references an existing role.
func (s *Snapshot) Validate() error {
	roleIDs := make(map[string]struct{}, len(s.Roles))
	roleNames := make(map[string]struct{}, len(s.Roles))
	for i, r := range s.Roles {
		if r == nil {
			return fmt.Errorf("role #%d is empty", i)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid role #%d: %w", i, err)
		}
		if _, dup := roleIDs[r.ID]; dup {
			return fmt.Errorf("duplicate role id %q", r.ID)
		}
		if _, dup := roleNames[r.Name]; dup {
			return errdefs.NewConflict(errdefs.DuplicateName, "role", fmt.Sprintf("name %q is used twice", r.Name))
		}
		roleIDs[r.ID] = struct{}{}
		roleNames[r.Name] = struct{}{}
	}

	userIDs := make(map[string]struct{}, len(s.Users))
	for i, u := range s.Users {
		if u == nil {
			return fmt.Errorf("user #%d is empty", i)
		}
		if err := u.Validate(); err != nil {
			return fmt.Errorf("invalid user #%d: %w", i, err)
		}
		if _, dup := userIDs[u.ID]; dup {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		if _, ok := roleIDs[u.RoleID]; !ok {
			return fmt.Errorf("user %q: %w", u.ID, errdefs.NewRoleNotFound(u.RoleID))
		}
		userIDs[u.ID] = struct{}{}
	}
	return nil
}
