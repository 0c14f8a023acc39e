package rbac_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/alicebob/miniredis/v2"
	"github.com/asakaida/rolegate/internal/repositories"
	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/asakaida/rolegate/internal/repositories/file"
	"github.com/asakaida/rolegate/internal/repositories/memory"
	"github.com/asakaida/rolegate/internal/repositories/redis"
	"github.com/asakaida/rolegate/pkg/cache/memorycache"
	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

// emptyDirectory starts the engine without the demo data
func emptyDirectory(time.Time) *rbac.Snapshot { return &rbac.Snapshot{} }

func newEngine(t *testing.T, repo repositories.SnapshotRepository, seed func(time.Time) *rbac.Snapshot) *rbac.Engine {
	t.Helper()
	e, err := rbac.New(context.Background(), rbac.Options{
		Repository: repo,
		Logger:     lagertest.NewTestLogger("rbac"),
		Clock:      func() time.Time { return epoch },
		IDs:        sequentialIDs(),
		Seed:       seed,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close(context.Background()) })
	return e
}

func TestEngine_StartsFromSeed(t *testing.T) {
	e := newEngine(t, nil, nil)

	assert.Equal(t, rbac.OriginSeed, e.Origin())
	stats := e.Stats()
	assert.Equal(t, 3, stats.TotalRoles)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)

	admin, ok := e.FindRoleByName("Admin")
	require.True(t, ok)
	assert.Equal(t, epoch, admin.CreatedAt)
}

func TestEngine_CreatedRolesAreTotal(t *testing.T) {
	e := newEngine(t, nil, emptyDirectory)

	_, err := e.CreateRole("Auditor", map[rbac.Resource]rbac.PermissionLevel{rbac.ResourceReports: rbac.LevelView})
	require.NoError(t, err)

	var matches []*rbac.Role
	for _, r := range e.ListRoles() {
		if r.Name == "Auditor" {
			matches = append(matches, r)
		}
	}
	require.Len(t, matches, 1)
	for _, res := range rbac.Resources() {
		assert.Contains(t, rbac.Levels(), matches[0].Permissions[res], res)
	}
	assert.Equal(t, rbac.LevelView, matches[0].Level(rbac.ResourceReports))
	assert.Equal(t, rbac.LevelNone, matches[0].Level(rbac.ResourceSettings))
}

func TestEngine_DuplicateRoleName(t *testing.T) {
	e := newEngine(t, nil, emptyDirectory)

	_, err := e.CreateRole("Admin", nil)
	require.NoError(t, err)
	_, err = e.CreateRole("Admin", nil)

	assert.ErrorIs(t, err, rbac.ErrDuplicateName)
	assert.True(t, rbac.IsConflict(err))
	assert.Len(t, e.ListRoles(), 1)
}

func TestEngine_DeleteRoleInUse(t *testing.T) {
	e := newEngine(t, nil, emptyDirectory)

	ops, err := e.CreateRole("Ops", nil)
	require.NoError(t, err)
	dev, err := e.CreateRole("Dev", nil)
	require.NoError(t, err)
	u, err := e.CreateUser(rbac.UserInput{Name: "Sam", Email: "sam@example.com", RoleID: ops.ID})
	require.NoError(t, err)

	err = e.DeleteRole(ops.ID)
	assert.ErrorIs(t, err, rbac.ErrRoleInUse)
	_, ok := e.GetRole(ops.ID)
	assert.True(t, ok, "failed delete must not remove the role")
	assert.Equal(t, ops.ID, mustUser(t, e, u.ID).RoleID, "failed delete must not cascade")

	_, err = e.AssignRole(u.ID, dev.ID)
	require.NoError(t, err)
	require.NoError(t, e.DeleteRole(ops.ID))
}

func TestEngine_AuthorizeByRoleLevel(t *testing.T) {
	e := newEngine(t, nil, emptyDirectory)

	full, err := e.CreateRole("Full", map[rbac.Resource]rbac.PermissionLevel{rbac.ResourceUsers: rbac.LevelFull})
	require.NoError(t, err)
	view, err := e.CreateRole("View", map[rbac.Resource]rbac.PermissionLevel{rbac.ResourceUsers: rbac.LevelView})
	require.NoError(t, err)
	a, err := e.CreateUser(rbac.UserInput{Name: "A", Email: "a@example.com", RoleID: full.ID})
	require.NoError(t, err)
	b, err := e.CreateUser(rbac.UserInput{Name: "B", Email: "b@example.com", RoleID: view.ID})
	require.NoError(t, err)

	assert.True(t, e.Allowed(a.ID, rbac.ResourceUsers, rbac.LevelEdit))
	d := e.Authorize(b.ID, rbac.ResourceUsers, rbac.LevelEdit)
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonInsufficientLevel, d.Reason)

	assert.Equal(t, []string{a.ID}, e.LookupUsers(rbac.ResourceUsers, rbac.LevelEdit))
}

func TestEngine_DeactivationDeniesEverything(t *testing.T) {
	e := newEngine(t, nil, nil)
	john := rbac.Seed(epoch).Users[0]
	require.True(t, e.Allowed(john.ID, rbac.ResourceSettings, rbac.LevelFull))

	_, err := e.SetUserStatus(john.ID, rbac.StatusInactive)
	require.NoError(t, err)

	for _, res := range rbac.Resources() {
		for _, lvl := range rbac.Levels() {
			d := e.Authorize(john.ID, res, lvl)
			assert.False(t, d.Allowed, "%s/%s", res, lvl)
			assert.Equal(t, rbac.ReasonUserInactiveOrUnknown, d.Reason)
		}
	}
	perms, reason := e.EffectivePermissions(john.ID)
	assert.Equal(t, rbac.ReasonUserInactiveOrUnknown, reason)
	assert.Equal(t, rbac.LevelNone, perms.Level(rbac.ResourceSettings))
}

func TestEngine_DeletedEntitiesAreGone(t *testing.T) {
	e := newEngine(t, nil, emptyDirectory)

	role, err := e.CreateRole("Temp", nil)
	require.NoError(t, err)
	user, err := e.CreateUser(rbac.UserInput{Name: "T", Email: "t@example.com", RoleID: role.ID})
	require.NoError(t, err)

	require.NoError(t, e.DeleteUser(user.ID))
	_, ok := e.GetUser(user.ID)
	assert.False(t, ok)
	_, err = e.UpdateUser(user.ID, rbac.UserPatch{})
	assert.ErrorIs(t, err, rbac.ErrNotFound)
	assert.ErrorIs(t, e.DeleteUser(user.ID), rbac.ErrNotFound)

	require.NoError(t, e.DeleteRole(role.ID))
	_, ok = e.GetRole(role.ID)
	assert.False(t, ok)
	_, err = e.UpdateRole(role.ID, rbac.RolePatch{})
	assert.True(t, rbac.IsNotFound(err))

	_, err = e.CreateUser(rbac.UserInput{Name: "U", Email: "u@example.com", RoleID: role.ID})
	assert.ErrorIs(t, err, rbac.ErrRoleNotFound)
	assert.Equal(t, rbac.ErrRoleNotFound, rbac.CodeOf(err))
}

func TestEngine_ValidationErrorsLeaveStateUnchanged(t *testing.T) {
	e := newEngine(t, nil, nil)
	before := e.Snapshot()
	rev := e.Revision()

	_, err := e.CreateRole("Broken", map[rbac.Resource]rbac.PermissionLevel{rbac.ResourceUsers: "superuser"})
	assert.ErrorIs(t, err, rbac.ErrInvalidPermission)
	_, err = e.CreateUser(rbac.UserInput{Name: "X", Email: "not-an-email", RoleID: before.Roles[0].ID})
	assert.ErrorIs(t, err, rbac.ErrInvalidEmail)
	assert.True(t, rbac.IsValidation(err))

	assert.Equal(t, rev, e.Revision())
	assert.Equal(t, before, e.Snapshot())
}

func TestEngine_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backends := []struct {
		name string
		repo repositories.SnapshotRepository
	}{
		{name: "memory json", repo: memory.NewSnapshotRepository(codec.JSON{})},
		{name: "memory proto", repo: memory.NewSnapshotRepository(codec.Proto{})},
		{name: "file", repo: file.NewSnapshotRepository(afero.NewMemMapFs(), "/var/lib/rolegate/snapshot.json", codec.JSON{})},
		{name: "redis", repo: redis.NewSnapshotRepository(client, "rolegate:test", codec.Proto{}, 0)},
	}

	for _, bk := range backends {
		t.Run(bk.name, func(t *testing.T) {
			ctx := context.Background()
			first := newEngine(t, bk.repo, nil)
			require.Equal(t, rbac.OriginSeed, first.Origin())

			role, err := first.CreateRole("Responder", map[rbac.Resource]rbac.PermissionLevel{
				rbac.ResourceThreatMonitoring: rbac.LevelDelete,
			})
			require.NoError(t, err)
			_, err = first.CreateUser(rbac.UserInput{Name: "Riley", Email: "riley@example.com", RoleID: role.ID, Status: rbac.StatusInactive})
			require.NoError(t, err)
			require.NoError(t, first.Flush(ctx))
			want := first.Snapshot()
			require.NoError(t, first.Close(ctx))

			second := newEngine(t, bk.repo, nil)
			assert.Equal(t, rbac.OriginStored, second.Origin())
			assertSameDirectory(t, want, second.Snapshot())
		})
	}
}

func TestEngine_FailedSavesDoNotFailMutations(t *testing.T) {
	repo := file.NewSnapshotRepository(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/snapshot.json", codec.JSON{})
	e := newEngine(t, repo, emptyDirectory)

	_, err := e.CreateRole("Ops", nil)
	require.NoError(t, err)
	assert.Error(t, e.Flush(context.Background()))

	m := e.Metrics().GetSnapshotMetrics()
	assert.Equal(t, uint64(1), m.Failures)
	_, ok := e.FindRoleByName("Ops")
	assert.True(t, ok)
}

func TestEngine_RestoreReplacesDirectory(t *testing.T) {
	e := newEngine(t, nil, nil)

	imported := &rbac.Snapshot{}
	require.NoError(t, e.Restore(imported))
	assert.Empty(t, e.ListRoles())
	assert.Empty(t, e.ListUsers())

	bad := rbac.Seed(epoch)
	bad.Users[0].RoleID = "missing"
	err := e.Restore(bad)
	assert.ErrorIs(t, err, rbac.ErrRoleNotFound)
	assert.Empty(t, e.ListRoles())
}

func TestEngine_CacheAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := rbac.New(context.Background(), rbac.Options{
		Logger:     lagertest.NewTestLogger("rbac"),
		Cache:      &memorycache.Config{MaxEntries: 100},
		Registerer: reg,
	})
	require.NoError(t, err)
	defer e.Close(context.Background())

	jane := rbac.Seed(epoch).Users[1]
	assert.False(t, e.Allowed(jane.ID, rbac.ResourceUsers, rbac.LevelDelete))
	assert.False(t, e.Allowed(jane.ID, rbac.ResourceUsers, rbac.LevelDelete))

	role, ok := e.GetRole(jane.RoleID)
	require.True(t, ok)
	_, err = e.UpdateRole(role.ID, rbac.RolePatch{Permissions: map[rbac.Resource]rbac.PermissionLevel{rbac.ResourceUsers: rbac.LevelFull}})
	require.NoError(t, err)
	assert.True(t, e.Allowed(jane.ID, rbac.ResourceUsers, rbac.LevelDelete), "cached decisions must not survive a change")

	cm := e.Metrics().GetCacheMetrics()
	assert.Equal(t, uint64(1), cm.Hits)
	assert.Equal(t, uint64(2), cm.Misses)

	assert.Equal(t, uint64(3), e.Metrics().GetDecisionCounts()[rbac.ReasonInsufficientLevel]+e.Metrics().GetDecisionCounts()[rbac.ReasonGranted])
	count, err := testutil.GatherAndCount(reg, "rolegate_decisions_total", "rolegate_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	e, err := rbac.New(context.Background(), rbac.Options{})
	require.NoError(t, err)

	require.NoError(t, e.Close(context.Background()))
	require.NoError(t, e.Close(context.Background()))
}

func TestEngine_RejectsInvalidSeed(t *testing.T) {
	_, err := rbac.New(context.Background(), rbac.Options{
		Seed: func(now time.Time) *rbac.Snapshot {
			s := rbac.Seed(now)
			s.Roles[1].Name = s.Roles[0].Name
			return s
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rbac.ErrDuplicateName))
}

func mustUser(t *testing.T, e *rbac.Engine, id string) *rbac.User {
	t.Helper()
	u, ok := e.GetUser(id)
	require.True(t, ok, id)
	return u
}

func assertSameDirectory(t *testing.T, want, got *rbac.Snapshot) {
	t.Helper()
	require.Len(t, got.Roles, len(want.Roles))
	require.Len(t, got.Users, len(want.Users))
	for i, w := range want.Roles {
		g := got.Roles[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.True(t, w.Permissions.Equal(g.Permissions), w.Name)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), w.Name)
		assert.True(t, w.UpdatedAt.Equal(g.UpdatedAt), w.Name)
	}
	for i, w := range want.Users {
		g := got.Users[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Email, g.Email)
		assert.Equal(t, w.RoleID, g.RoleID)
		assert.Equal(t, w.Status, g.Status)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), w.Name)
	}
}
