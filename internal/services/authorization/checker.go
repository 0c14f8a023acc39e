package authorization

import (
	"fmt"
	"sync/atomic"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/services/directory"
	"github.com/asakaida/rolegate/pkg/cache"
)

// Directory is the read side of the role and user stores the checker needs
type Directory interface {
	Grant(userID string) (directory.Grant, bool)
	Grants() ([]directory.Grant, uint64)
	Revision() uint64
}

// Reason explains a decision
type Reason string

const (
	ReasonGranted               Reason = "Granted"
	ReasonInsufficientLevel     Reason = "InsufficientLevel"
	ReasonUserInactiveOrUnknown Reason = "UserInactiveOrUnknown"
	ReasonRoleMissing           Reason = "RoleMissing"
	ReasonInvalidRequest        Reason = "InvalidRequest"
)

// Decision is the result of an authorization check
type Decision struct {
	Allowed bool
	Reason  Reason
	Level   entities.PermissionLevel // Level the user's role holds on the resource
}

// String returns "allow" or "deny" with the reason
func (d Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("allow (%s)", d.Reason)
	}
	return fmt.Sprintf("deny (%s)", d.Reason)
}

// Check is one (resource, level) question for AuthorizeMany
type Check struct {
	Resource entities.Resource
	Required entities.PermissionLevel
}

// DecisionObserver is notified of every decision
type DecisionObserver interface {
	ObserveDecision(resource entities.Resource, d Decision)
}

// DecisionKey identifies a cached decision at one directory revision
type DecisionKey struct {
	Revision uint64
	UserID   string
	Resource entities.Resource
	Required entities.PermissionLevel
}

// Checker answers "may this user act on this resource at this level".
// It never fails: unknown users, inactive users and dangling role references
// are denied.
type Checker struct {
	dir      Directory
	cache    cache.Cache[DecisionKey, Decision] // Optional decision cache
	observer DecisionObserver

	cachedRevision atomic.Uint64
}

// CheckerOption configures a Checker
type CheckerOption func(*Checker)

// WithCache enables decision caching
func WithCache(c cache.Cache[DecisionKey, Decision]) CheckerOption {
	return func(ch *Checker) { ch.cache = c }
}

// WithDecisionObserver sets the decision observer
func WithDecisionObserver(o DecisionObserver) CheckerOption {
	return func(ch *Checker) { ch.observer = o }
}

// NewChecker creates a new Checker
func NewChecker(dir Directory, opts ...CheckerOption) *Checker {
	c := &Checker{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authorize decides whether userID may act on resource at the required level
func (c *Checker) Authorize(userID string, resource entities.Resource, required entities.PermissionLevel) Decision {
	var d Decision
	if c.cache == nil {
		g, ok := c.dir.Grant(userID)
		d = decide(g, ok, resource, required)
	} else {
		d = c.cachedDecision(userID, resource, required)
	}

	if c.observer != nil {
		c.observer.ObserveDecision(resource, d)
	}
	return d
}

func (c *Checker) cachedDecision(userID string, resource entities.Resource, required entities.PermissionLevel) Decision {
	g, ok := c.dir.Grant(userID)
	c.dropStale(g.Revision)

	key := DecisionKey{Revision: g.Revision, UserID: userID, Resource: resource, Required: required}
	if d, hit := c.cache.Get(key); hit {
		return d
	}
	d := decide(g, ok, resource, required)
	c.cache.Set(key, d)
	return d
}

// dropStale purges the cache once the directory has moved past the revision
// its entries were computed at
func (c *Checker) dropStale(revision uint64) {
	for {
		seen := c.cachedRevision.Load()
		if revision <= seen {
			return
		}
		if c.cachedRevision.CompareAndSwap(seen, revision) {
			c.cache.Purge()
			return
		}
	}
}

// AuthorizeMany answers several checks for one user against a single
// revision of the directory
func (c *Checker) AuthorizeMany(userID string, checks []Check) []Decision {
	g, ok := c.dir.Grant(userID)
	out := make([]Decision, len(checks))
	for i, chk := range checks {
		out[i] = decide(g, ok, chk.Resource, chk.Required)
		if c.observer != nil {
			c.observer.ObserveDecision(chk.Resource, out[i])
		}
	}
	return out
}

// EffectivePermissions returns the levels userID currently holds on every
// resource. Users that would be denied everything get an all-none mapping and
// the deny reason.
func (c *Checker) EffectivePermissions(userID string) (entities.Permissions, Reason) {
	g, ok := c.dir.Grant(userID)
	switch {
	case !ok || !g.User.Active():
		return entities.NewPermissions(nil), ReasonUserInactiveOrUnknown
	case g.Role == nil:
		return entities.NewPermissions(nil), ReasonRoleMissing
	}
	return g.Role.Permissions.Clone(), ReasonGranted
}

// LookupUsers returns the ids of users allowed to act on resource at the
// required level, in user creation order
func (c *Checker) LookupUsers(resource entities.Resource, required entities.PermissionLevel) []string {
	grants, _ := c.dir.Grants()
	var ids []string
	for _, g := range grants {
		if decide(g, true, resource, required).Allowed {
			ids = append(ids, g.User.ID)
		}
	}
	return ids
}

// decide is the pure decision over a resolved grant
func decide(g directory.Grant, found bool, resource entities.Resource, required entities.PermissionLevel) Decision {
	if !required.Valid() {
		return Decision{Reason: ReasonInvalidRequest, Level: entities.LevelNone}
	}
	if !found || g.User == nil || !g.User.Active() {
		return Decision{Reason: ReasonUserInactiveOrUnknown, Level: entities.LevelNone}
	}
	if g.Role == nil {
		return Decision{Reason: ReasonRoleMissing, Level: entities.LevelNone}
	}

	level := g.Role.Level(resource)
	if entities.AtLeast(level, required) {
		return Decision{Allowed: true, Reason: ReasonGranted, Level: level}
	}
	return Decision{Reason: ReasonInsufficientLevel, Level: level}
}
