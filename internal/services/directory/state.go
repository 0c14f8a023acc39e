package directory

import (
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/google/uuid"
)

// Persister receives a copy of the full state after every committed mutation.
// Persist is called with the state lock held and must not block.
type Persister interface {
	Persist(revision uint64, s *entities.Snapshot)
}

// Observer is notified of every mutation attempt
type Observer interface {
	ObserveMutation(operation string, err error)
}

// Grant is what a user holds at a given revision. Role is nil when the user's
// role reference does not resolve.
type Grant struct {
	User     *entities.User
	Role     *entities.Role
	Revision uint64
}

// State owns the role and user collections. RoleStore and UserStore are views
// over one State so checks spanning both collections see a single version.
type State struct {
	mu sync.RWMutex

	roles     map[string]*entities.Role
	roleOrder []string
	users     map[string]*entities.User
	userOrder []string
	revision  uint64

	persister Persister
	observer  Observer
	logger    lager.Logger
	now       func() time.Time
	newID     func() string
}

const maxIDAttempts = 8

// Option configures a State
type Option func(*State)

// WithPersister sets the snapshot sink notified after each commit
func WithPersister(p Persister) Option {
	return func(s *State) { s.persister = p }
}

// WithObserver sets the mutation observer
func WithObserver(o Observer) Option {
	return func(s *State) { s.observer = o }
}

// WithLogger sets the logger
func WithLogger(l lager.Logger) Option {
	return func(s *State) { s.logger = l }
}

// WithClock sets the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithIDGenerator sets the id source for new roles and users
func WithIDGenerator(newID func() string) Option {
	return func(s *State) { s.newID = newID }
}

// NewState creates a State holding a copy of initial. A nil initial starts empty.
func NewState(initial *entities.Snapshot, opts ...Option) (*State, error) {
	s := &State{
		roles:  make(map[string]*entities.Role),
		users:  make(map[string]*entities.User),
		logger: lager.NewLogger("rolegate"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if initial != nil {
		if err := initial.Validate(); err != nil {
			return nil, fmt.Errorf("invalid initial state: %w", err)
		}
		s.load(initial.Clone())
	}
	return s, nil
}

func (s *State) load(snap *entities.Snapshot) {
	s.roles = make(map[string]*entities.Role, len(snap.Roles))
	s.roleOrder = make([]string, 0, len(snap.Roles))
	for _, r := range snap.Roles {
		s.roles[r.ID] = r
		s.roleOrder = append(s.roleOrder, r.ID)
	}
	s.users = make(map[string]*entities.User, len(snap.Users))
	s.userOrder = make([]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		s.users[u.ID] = u
		s.userOrder = append(s.userOrder, u.ID)
	}
}

// Revision returns the number of committed mutations since construction
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a deep copy of the current state in creation order
func (s *State) Snapshot() *entities.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Restore replaces the whole state with a copy of snap after validating it
func (s *State) Restore(snap *entities.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot restore nil snapshot")
	}
	if err := snap.Validate(); err != nil {
		s.observe("restore", err)
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(snap.Clone())
	s.commitLocked()
	s.observe("restore", nil)
	s.logger.Info("restored", lager.Data{"roles": len(snap.Roles), "users": len(snap.Users)})
	return nil
}

// Grant resolves a user and the role it references
func (s *State) Grant(userID string) (Grant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return Grant{Revision: s.revision}, false
	}
	return Grant{User: u.Clone(), Role: s.roles[u.RoleID].Clone(), Revision: s.revision}, true
}

// Grants resolves every user in creation order
func (s *State) Grants() ([]Grant, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Grant, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		u := s.users[id]
		out = append(out, Grant{User: u.Clone(), Role: s.roles[u.RoleID].Clone(), Revision: s.revision})
	}
	return out, s.revision
}

func (s *State) snapshotLocked() *entities.Snapshot {
	snap := &entities.Snapshot{
		Roles: make([]*entities.Role, 0, len(s.roleOrder)),
		Users: make([]*entities.User, 0, len(s.userOrder)),
	}
	for _, id := range s.roleOrder {
		snap.Roles = append(snap.Roles, s.roles[id].Clone())
	}
	for _, id := range s.userOrder {
		snap.Users = append(snap.Users, s.users[id].Clone())
	}
	return snap
}

// commitLocked publishes the mutation just applied. Callers hold s.mu.
func (s *State) commitLocked() {
	s.revision++
	if s.persister != nil {
		s.persister.Persist(s.revision, s.snapshotLocked())
	}
}

func (s *State) observe(operation string, err error) {
	if s.observer != nil {
		s.observer.ObserveMutation(operation, err)
	}
}

func (s *State) timestamp() time.Time {
	return s.now().UTC()
}

// allocateID returns an id not used by any role or user
func (s *State) allocateID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		_, roleTaken := s.roles[id]
		_, userTaken := s.users[id]
		if id != "" && !roleTaken && !userTaken {
			return id, nil
		}
	}
	return "", fmt.Errorf("id generator returned %d colliding ids", maxIDAttempts)
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}
