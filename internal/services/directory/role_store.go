package directory

import (
	"fmt"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/errdefs"
)

// RolePatch lists the role fields to change. Nil fields are left alone and
// Permissions entries are merged into the existing mapping.
type RolePatch struct {
	Name        *string
	Permissions map[entities.Resource]entities.PermissionLevel
}

// RoleStore manages role definitions
type RoleStore struct {
	state  *State
	logger lager.Logger
}

// NewRoleStore creates a RoleStore over state
func NewRoleStore(state *State) *RoleStore {
	return &RoleStore{state: state, logger: state.logger.Session("role-store")}
}

// Create adds a role. Resources missing from permissions are set to none.
func (rs *RoleStore) Create(name string, permissions map[entities.Resource]entities.PermissionLevel) (*entities.Role, error) {
	s := rs.state
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := rs.createLocked(name, permissions)
	s.observe("role.create", err)
	if err != nil {
		return nil, err
	}

	rs.logger.Info("created", lager.Data{"id": role.ID, "name": role.Name})
	return role.Clone(), nil
}

func (rs *RoleStore) createLocked(name string, permissions map[entities.Resource]entities.PermissionLevel) (*entities.Role, error) {
	s := rs.state
	if name == "" {
		return nil, errdefs.NewValidationError(errdefs.MissingField, "name", "role name is required")
	}
	if err := entities.CheckPermissions(permissions); err != nil {
		return nil, err
	}
	if err := rs.checkNameLocked(name, ""); err != nil {
		return nil, err
	}
	id, err := s.allocateID()
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	role := &entities.Role{
		ID:          id,
		Name:        name,
		Permissions: entities.NewPermissions(permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.roles[id] = role
	s.roleOrder = append(s.roleOrder, id)
	s.commitLocked()
	return role, nil
}

// Update applies patch to the role with the given id
func (rs *RoleStore) Update(id string, patch RolePatch) (*entities.Role, error) {
	s := rs.state
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := rs.updateLocked(id, patch)
	s.observe("role.update", err)
	if err != nil {
		return nil, err
	}

	rs.logger.Debug("updated", lager.Data{"id": role.ID, "name": role.Name})
	return role.Clone(), nil
}

func (rs *RoleStore) updateLocked(id string, patch RolePatch) (*entities.Role, error) {
	s := rs.state
	current, ok := s.roles[id]
	if !ok {
		return nil, errdefs.NewNotFound("role", id)
	}

	next := current.Clone()
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, errdefs.NewValidationError(errdefs.MissingField, "name", "role name is required")
		}
		if err := rs.checkNameLocked(*patch.Name, id); err != nil {
			return nil, err
		}
		next.Name = *patch.Name
	}
	if err := entities.CheckPermissions(patch.Permissions); err != nil {
		return nil, err
	}
	next.Permissions = current.Permissions.Merge(patch.Permissions)
	next.UpdatedAt = s.timestamp()

	s.roles[id] = next
	s.commitLocked()
	return next, nil
}

// Delete removes the role. A role still assigned to a user is never removed.
func (rs *RoleStore) Delete(id string) error {
	s := rs.state
	s.mu.Lock()
	defer s.mu.Unlock()

	err := rs.deleteLocked(id)
	s.observe("role.delete", err)
	if err != nil {
		return err
	}

	rs.logger.Info("deleted", lager.Data{"id": id})
	return nil
}

func (rs *RoleStore) deleteLocked(id string) error {
	s := rs.state
	if _, ok := s.roles[id]; !ok {
		return errdefs.NewNotFound("role", id)
	}

	assigned := 0
	for _, u := range s.users {
		if u.RoleID == id {
			assigned++
		}
	}
	if assigned > 0 {
		return errdefs.NewConflict(errdefs.RoleInUse, "role",
			fmt.Sprintf("role %q is assigned to %d user(s)", id, assigned))
	}

	delete(s.roles, id)
	s.roleOrder = removeID(s.roleOrder, id)
	s.commitLocked()
	return nil
}

// Get returns a copy of the role with the given id
func (rs *RoleStore) Get(id string) (*entities.Role, bool) {
	s := rs.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// FindByName returns a copy of the role with exactly this name
func (rs *RoleStore) FindByName(name string) (*entities.Role, bool) {
	s := rs.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.roleOrder {
		if r := s.roles[id]; r.Name == name {
			return r.Clone(), true
		}
	}
	return nil, false
}

// List returns copies of every role in creation order
func (rs *RoleStore) List() []*entities.Role {
	s := rs.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Role, 0, len(s.roleOrder))
	for _, id := range s.roleOrder {
		out = append(out, s.roles[id].Clone())
	}
	return out
}

// checkNameLocked fails with DuplicateName when another role already uses name
func (rs *RoleStore) checkNameLocked(name, selfID string) error {
	for id, r := range rs.state.roles {
		if id != selfID && r.Name == name {
			return errdefs.NewConflict(errdefs.DuplicateName, "role",
				fmt.Sprintf("a role named %q already exists", name))
		}
	}
	return nil
}
