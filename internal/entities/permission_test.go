package entities

import (
	"testing"

	"github.com/asakaida/rolegate/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	tests := []struct {
		level PermissionLevel
		want  int
	}{
		{LevelNone, 0},
		{LevelView, 1},
		{LevelCreate, 2},
		{LevelEdit, 3},
		{LevelDelete, 4},
		{LevelFull, 5},
		{PermissionLevel("root"), -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.level))
		})
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		name      string
		level     PermissionLevel
		threshold PermissionLevel
		want      bool
	}{
		{name: "equal levels", level: LevelEdit, threshold: LevelEdit, want: true},
		{name: "full covers everything", level: LevelFull, threshold: LevelDelete, want: true},
		{name: "view below edit", level: LevelView, threshold: LevelEdit, want: false},
		{name: "anything covers none", level: LevelNone, threshold: LevelNone, want: true},
		{name: "unknown level never passes", level: PermissionLevel("bogus"), threshold: LevelNone, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AtLeast(tt.level, tt.threshold))
		})
	}
}

func TestResources_StableCopy(t *testing.T) {
	first := Resources()
	require.Equal(t, []Resource{
		ResourceDashboard, ResourceUsers, ResourceRoles,
		ResourceThreatMonitoring, ResourceReports, ResourceSettings,
	}, first)

	first[0] = "mutated"
	assert.Equal(t, ResourceDashboard, Resources()[0])
}

func TestLevels_Ordered(t *testing.T) {
	levels := Levels()
	for i := 1; i < len(levels); i++ {
		assert.Less(t, Rank(levels[i-1]), Rank(levels[i]))
	}
}

func TestParse(t *testing.T) {
	r, err := ParseResource("reports")
	require.NoError(t, err)
	assert.Equal(t, ResourceReports, r)

	_, err = ParseResource("billing")
	assert.Error(t, err)

	l, err := ParsePermissionLevel("delete")
	require.NoError(t, err)
	assert.Equal(t, LevelDelete, l)

	_, err = ParsePermissionLevel("Delete")
	assert.Error(t, err)
}

func TestNewPermissions_DefaultsToNone(t *testing.T) {
	p := NewPermissions(map[Resource]PermissionLevel{ResourceUsers: LevelEdit})

	assert.True(t, p.Total())
	assert.Len(t, p, len(Resources()))
	assert.Equal(t, LevelEdit, p.Level(ResourceUsers))
	for _, r := range Resources() {
		if r != ResourceUsers {
			assert.Equal(t, LevelNone, p.Level(r), "resource %s", r)
		}
	}
	assert.Equal(t, LevelNone, p.Level(Resource("unknown")))
}

func TestPermissions_MergeDoesNotMutate(t *testing.T) {
	base := NewPermissions(map[Resource]PermissionLevel{ResourceReports: LevelView})
	merged := base.Merge(map[Resource]PermissionLevel{ResourceReports: LevelFull, ResourceSettings: LevelEdit})

	assert.Equal(t, LevelView, base.Level(ResourceReports))
	assert.Equal(t, LevelNone, base.Level(ResourceSettings))
	assert.Equal(t, LevelFull, merged.Level(ResourceReports))
	assert.Equal(t, LevelEdit, merged.Level(ResourceSettings))
	assert.False(t, base.Equal(merged))
	assert.True(t, merged.Equal(merged.Clone()))
}

func TestCheckPermissions(t *testing.T) {
	tests := []struct {
		name    string
		partial map[Resource]PermissionLevel
		wantErr bool
	}{
		{name: "empty mapping", partial: nil},
		{name: "valid entries", partial: map[Resource]PermissionLevel{ResourceUsers: LevelFull, ResourceRoles: LevelView}},
		{name: "unknown resource", partial: map[Resource]PermissionLevel{"billing": LevelView}, wantErr: true},
		{name: "unknown level", partial: map[Resource]PermissionLevel{ResourceUsers: "root"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPermissions(tt.partial)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errdefs.InvalidPermission)
			assert.True(t, errdefs.IsValidation(err))
		})
	}
}

func TestCheckPermissions_ReportsEveryProblem(t *testing.T) {
	err := CheckPermissions(map[Resource]PermissionLevel{
		"billing":     LevelView,
		ResourceUsers: "root",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"billing"`)
	assert.Contains(t, err.Error(), `"root"`)
}
