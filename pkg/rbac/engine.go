package rbac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/infrastructure/metrics"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/memory"
	"github.com/asakaida/rolegate/internal/services/authorization"
	"github.com/asakaida/rolegate/internal/services/directory"
	"github.com/asakaida/rolegate/internal/services/snapshot"
	"github.com/asakaida/rolegate/pkg/cache/memorycache"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures an Engine
type Options struct {
	// Repository stores snapshots. Nil keeps them in process memory.
	Repository repositories.SnapshotRepository

	// Logger receives engine logs. Nil discards them.
	Logger lager.Logger

	// Cache enables the decision cache when non-nil
	Cache *memorycache.Config

	// Registerer receives the Prometheus metrics when non-nil
	Registerer prometheus.Registerer

	// Clock stamps createdAt/updatedAt. Nil uses time.Now.
	Clock func() time.Time

	// IDs generates role and user ids. Nil uses random UUIDs.
	IDs func() string

	// Seed builds the initial directory when nothing is stored. Nil uses Seed.
	Seed func(time.Time) *Snapshot

	// SaveTimeout bounds each snapshot save. Zero uses the writer default.
	SaveTimeout time.Duration
}

// Engine is an embeddable role-based access control engine: a role store, a
// user store and an authorization checker sharing one in-memory directory
// that is persisted asynchronously after every change.
type Engine struct {
	state   *directory.State
	roles   *directory.RoleStore
	users   *directory.UserStore
	checker *authorization.Checker
	writer  *snapshot.Writer

	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
	logger    lager.Logger
	origin    Origin

	closeOnce sync.Once
	closers   []func() error
	closeErr  error
}

// New loads the stored directory, or the seed when nothing usable is stored,
// and returns a ready Engine
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = lager.NewLogger("rolegate")
	}
	repo := opts.Repository
	if repo == nil {
		repo = memory.NewSnapshotRepository(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	collector := metrics.NewCollector()
	var exporter *metrics.PrometheusExporter
	if opts.Registerer != nil {
		exporter = metrics.NewPrometheusExporter(collector, opts.Registerer)
	}

	seed := opts.Seed
	if seed == nil {
		seed = Seed
	}
	stamped := func(time.Time) *Snapshot { return seed(clock()) }
	initial, origin := snapshot.NewLoader(repo, logger, stamped).Load(ctx)

	writerOpts := []snapshot.WriterOption{snapshot.WithSaveObserver(collector)}
	if opts.SaveTimeout > 0 {
		writerOpts = append(writerOpts, snapshot.WithSaveTimeout(opts.SaveTimeout))
	}
	writer := snapshot.NewWriter(repo, logger, writerOpts...)

	stateOpts := []directory.Option{
		directory.WithPersister(writer),
		directory.WithObserver(collector),
		directory.WithLogger(logger),
		directory.WithClock(clock),
	}
	if opts.IDs != nil {
		stateOpts = append(stateOpts, directory.WithIDGenerator(opts.IDs))
	}
	state, err := directory.NewState(initial, stateOpts...)
	if err != nil {
		writer.Close(ctx)
		return nil, err
	}

	checkerOpts := []authorization.CheckerOption{authorization.WithDecisionObserver(collector)}
	if opts.Cache != nil {
		c := memorycache.New[authorization.DecisionKey, authorization.Decision](*opts.Cache)
		collector.SetCache(c)
		checkerOpts = append(checkerOpts, authorization.WithCache(c))
	}

	e := &Engine{
		state:     state,
		roles:     directory.NewRoleStore(state),
		users:     directory.NewUserStore(state),
		checker:   authorization.NewChecker(state, checkerOpts...),
		writer:    writer,
		collector: collector,
		exporter:  exporter,
		logger:    logger.Session("engine"),
		origin:    origin,
	}
	e.logger.Info("started", lager.Data{
		"origin": origin,
		"roles":  len(initial.Roles),
		"users":  len(initial.Users),
	})
	return e, nil
}

// Origin reports whether the engine started from stored state or seed data
func (e *Engine) Origin() Origin { return e.origin }

// CreateRole adds a role. Resources missing from permissions get LevelNone.
func (e *Engine) CreateRole(name string, permissions map[Resource]PermissionLevel) (*Role, error) {
	return e.roles.Create(name, permissions)
}

// UpdateRole renames a role and/or changes some of its levels
func (e *Engine) UpdateRole(id string, patch RolePatch) (*Role, error) {
	return e.roles.Update(id, patch)
}

// DeleteRole removes a role no user is assigned to
func (e *Engine) DeleteRole(id string) error {
	return e.roles.Delete(id)
}

// GetRole returns a copy of the role with id
func (e *Engine) GetRole(id string) (*Role, bool) {
	return e.roles.Get(id)
}

// FindRoleByName returns a copy of the role called name
func (e *Engine) FindRoleByName(name string) (*Role, bool) {
	return e.roles.FindByName(name)
}

// ListRoles returns copies of all roles in creation order
func (e *Engine) ListRoles() []*Role {
	return e.roles.List()
}

// CreateUser adds a user assigned to an existing role
func (e *Engine) CreateUser(in UserInput) (*User, error) {
	return e.users.Create(in)
}

// UpdateUser changes some fields of a user
func (e *Engine) UpdateUser(id string, patch UserPatch) (*User, error) {
	return e.users.Update(id, patch)
}

// SetUserStatus activates or deactivates a user
func (e *Engine) SetUserStatus(id string, status Status) (*User, error) {
	return e.users.Update(id, UserPatch{Status: &status})
}

// AssignRole moves a user to another role
func (e *Engine) AssignRole(userID, roleID string) (*User, error) {
	return e.users.Update(userID, UserPatch{RoleID: &roleID})
}

// DeleteUser removes a user
func (e *Engine) DeleteUser(id string) error {
	return e.users.Delete(id)
}

// GetUser returns a copy of the user with id
func (e *Engine) GetUser(id string) (*User, bool) {
	return e.users.Get(id)
}

// ListUsers returns copies of all users in creation order
func (e *Engine) ListUsers() []*User {
	return e.users.List()
}

// ListUsersByRole returns copies of the users assigned to roleID
func (e *Engine) ListUsersByRole(roleID string) []*User {
	return e.users.ListByRole(roleID)
}

// Authorize decides whether userID may act on resource at the required level.
// It never fails; anything it cannot resolve is denied.
func (e *Engine) Authorize(userID string, resource Resource, required PermissionLevel) Decision {
	return e.checker.Authorize(userID, resource, required)
}

// Allowed is Authorize reduced to its verdict
func (e *Engine) Allowed(userID string, resource Resource, required PermissionLevel) bool {
	return e.checker.Authorize(userID, resource, required).Allowed
}

// AuthorizeMany answers several checks for one user against one state
func (e *Engine) AuthorizeMany(userID string, checks []Check) []Decision {
	return e.checker.AuthorizeMany(userID, checks)
}

// EffectivePermissions returns the level userID holds on every resource
func (e *Engine) EffectivePermissions(userID string) (Permissions, Reason) {
	return e.checker.EffectivePermissions(userID)
}

// LookupUsers returns the ids of users allowed on resource at required
func (e *Engine) LookupUsers(resource Resource, required PermissionLevel) []string {
	return e.checker.LookupUsers(resource, required)
}

// Stats summarises the directory
func (e *Engine) Stats() Stats {
	return e.users.Stats()
}

// Snapshot returns a deep copy of the whole directory
func (e *Engine) Snapshot() *Snapshot {
	return e.state.Snapshot()
}

// Restore replaces the whole directory with snap after validating it
func (e *Engine) Restore(snap *Snapshot) error {
	return e.state.Restore(snap)
}

// Revision returns the number of changes committed since the engine started
func (e *Engine) Revision() uint64 {
	return e.state.Revision()
}

// Metrics returns the in-process metrics, refreshing exported gauges
func (e *Engine) Metrics() *metrics.Collector {
	if e.exporter != nil {
		e.exporter.Update()
	}
	return e.collector
}

// Flush waits until the latest change has been saved and returns the error
// of the most recent save attempt
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.Flush(ctx)
}

// Close saves pending changes, stops the writer and releases the storage
// connections the engine opened. Mutations after Close are not persisted.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		var result *multierror.Error
		if err := e.writer.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("final save: %w", err))
		}
		for i := len(e.closers) - 1; i >= 0; i-- {
			if err := e.closers[i](); err != nil {
				result = multierror.Append(result, err)
			}
		}
		e.closeErr = result.ErrorOrNil()
		e.logger.Info("closed")
	})
	return e.closeErr
}
