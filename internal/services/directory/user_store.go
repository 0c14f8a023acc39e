package directory

import (
	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/errdefs"
)

// UserInput holds the fields of a new user. An empty Status means Active.
type UserInput struct {
	Name   string
	Email  string
	RoleID string
	Status entities.Status
}

// UserPatch lists the user fields to change. Nil fields are left alone.
type UserPatch struct {
	Name   *string
	Email  *string
	RoleID *string
	Status *entities.Status
}

// Stats summarises the directory the way the console dashboard shows it
type Stats struct {
	TotalUsers   int
	TotalRoles   int
	ActiveUsers  int
	UsersPerRole map[string]int // role id -> number of assigned users
}

// UserStore manages users and their role assignment
type UserStore struct {
	state  *State
	logger lager.Logger
}

// NewUserStore creates a UserStore over state
func NewUserStore(state *State) *UserStore {
	return &UserStore{state: state, logger: state.logger.Session("user-store")}
}

// Create adds a user assigned to an existing role
func (us *UserStore) Create(in UserInput) (*entities.User, error) {
	s := us.state
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := us.createLocked(in)
	s.observe("user.create", err)
	if err != nil {
		return nil, err
	}

	us.logger.Info("created", lager.Data{"id": user.ID, "role": user.RoleID})
	return user.Clone(), nil
}

func (us *UserStore) createLocked(in UserInput) (*entities.User, error) {
	s := us.state
	status := in.Status
	if status == "" {
		status = entities.StatusActive
	}

	id, err := s.allocateID()
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	user := &entities.User{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		RoleID:    in.RoleID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.roles[in.RoleID]; !ok {
		return nil, errdefs.NewRoleNotFound(in.RoleID)
	}

	s.users[id] = user
	s.userOrder = append(s.userOrder, id)
	s.commitLocked()
	return user, nil
}

// Update applies patch to the user with the given id
func (us *UserStore) Update(id string, patch UserPatch) (*entities.User, error) {
	s := us.state
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := us.updateLocked(id, patch)
	s.observe("user.update", err)
	if err != nil {
		return nil, err
	}

	us.logger.Debug("updated", lager.Data{"id": user.ID, "role": user.RoleID, "status": user.Status})
	return user.Clone(), nil
}

func (us *UserStore) updateLocked(id string, patch UserPatch) (*entities.User, error) {
	s := us.state
	current, ok := s.users[id]
	if !ok {
		return nil, errdefs.NewNotFound("user", id)
	}

	next := current.Clone()
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.RoleID != nil {
		next.RoleID = *patch.RoleID
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.roles[next.RoleID]; !ok {
		return nil, errdefs.NewRoleNotFound(next.RoleID)
	}
	next.UpdatedAt = s.timestamp()

	s.users[id] = next
	s.commitLocked()
	return next, nil
}

// Delete removes the user. Nothing references users, so this never conflicts.
func (us *UserStore) Delete(id string) error {
	s := us.state
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if _, ok := s.users[id]; !ok {
		err = errdefs.NewNotFound("user", id)
	} else {
		delete(s.users, id)
		s.userOrder = removeID(s.userOrder, id)
		s.commitLocked()
	}
	s.observe("user.delete", err)
	if err != nil {
		return err
	}

	us.logger.Info("deleted", lager.Data{"id": id})
	return nil
}

// Get returns a copy of the user with the given id
func (us *UserStore) Get(id string) (*entities.User, bool) {
	s := us.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

// List returns copies of every user in creation order
func (us *UserStore) List() []*entities.User {
	return us.filter(func(*entities.User) bool { return true })
}

// ListByRole returns the users assigned to roleID in creation order
func (us *UserStore) ListByRole(roleID string) []*entities.User {
	return us.filter(func(u *entities.User) bool { return u.RoleID == roleID })
}

func (us *UserStore) filter(keep func(*entities.User) bool) []*entities.User {
	s := us.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		if u := s.users[id]; keep(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}

// Stats counts users and roles. Every role appears in UsersPerRole, unassigned
// roles with zero.
func (us *UserStore) Stats() Stats {
	s := us.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalUsers:   len(s.users),
		TotalRoles:   len(s.roles),
		UsersPerRole: make(map[string]int, len(s.roles)),
	}
	for id := range s.roles {
		st.UsersPerRole[id] = 0
	}
	for _, u := range s.users {
		st.UsersPerRole[u.RoleID]++
		if u.Active() {
			st.ActiveUsers++
		}
	}
	return st
}
