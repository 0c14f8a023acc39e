package entities

import (
	"fmt"
	"sort"
)

// Resource identifies a protectable area of the console
// Example: "users", "threat_monitoring"
type Resource string

// Known resources
const (
	ResourceDashboard        Resource = "dashboard"
	ResourceUsers            Resource = "users"
	ResourceRoles            Resource = "roles"
	ResourceThreatMonitoring Resource = "threat_monitoring"
	ResourceReports          Resource = "reports"
	ResourceSettings         Resource = "settings"
)

var resourceCatalog = []Resource{
	ResourceDashboard,
	ResourceUsers,
	ResourceRoles,
	ResourceThreatMonitoring,
	ResourceReports,
	ResourceSettings,
}

// PermissionLevel is one point on the capability order
// none < view < create < edit < delete < full
type PermissionLevel string

// Permission levels in ascending order
const (
	LevelNone   PermissionLevel = "none"
	LevelView   PermissionLevel = "view"
	LevelCreate PermissionLevel = "create"
	LevelEdit   PermissionLevel = "edit"
	LevelDelete PermissionLevel = "delete"
	LevelFull   PermissionLevel = "full"
)

var levelOrder = []PermissionLevel{
	LevelNone,
	LevelView,
	LevelCreate,
	LevelEdit,
	LevelDelete,
	LevelFull,
}

var levelRanks = func() map[PermissionLevel]int {
	ranks := make(map[PermissionLevel]int, len(levelOrder))
	for i, l := range levelOrder {
		ranks[l] = i
	}
	return ranks
}()

// Resources returns the fixed resource catalog in display order.
// The returned slice is a copy and may be modified by the caller.
func Resources() []Resource {
	out := make([]Resource, len(resourceCatalog))
	copy(out, resourceCatalog)
	return out
}

// Levels returns every permission level in ascending order
func Levels() []PermissionLevel {
	out := make([]PermissionLevel, len(levelOrder))
	copy(out, levelOrder)
	return out
}

// Valid reports whether the resource belongs to the catalog
func (r Resource) Valid() bool {
	for _, known := range resourceCatalog {
		if r == known {
			return true
		}
	}
	return false
}

// Valid reports whether the level is one of the enumerated levels
func (l PermissionLevel) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Rank returns the position of the level in the total order.
// Unknown levels rank -1 so they never satisfy a threshold.
func Rank(l PermissionLevel) int {
	if r, ok := levelRanks[l]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether level grants at least the capability of threshold
func AtLeast(level, threshold PermissionLevel) bool {
	return Rank(level) >= Rank(threshold)
}

// ParseResource converts a string into a catalog resource
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown resource %q", s)
	}
	return r, nil
}

// ParsePermissionLevel converts a string into a permission level
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	l := PermissionLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown permission level %q", s)
	}
	return l, nil
}

// Permissions maps every resource to exactly one level
type Permissions map[Resource]PermissionLevel

// NewPermissions builds a total mapping from a partial one.
// Resources absent from partial are set to LevelNone. Entries are copied as-is;
// callers validate partial with CheckPermissions first.
func NewPermissions(partial map[Resource]PermissionLevel) Permissions {
	p := make(Permissions, len(resourceCatalog))
	for _, r := range resourceCatalog {
		p[r] = LevelNone
	}
	for r, l := range partial {
		p[r] = l
	}
	return p
}

// Level returns the level granted on r, LevelNone when r is not mapped
func (p Permissions) Level(r Resource) PermissionLevel {
	if l, ok := p[r]; ok {
		return l
	}
	return LevelNone
}

// Merge returns a copy of p with the entries of patch applied on top
func (p Permissions) Merge(patch map[Resource]PermissionLevel) Permissions {
	out := p.Clone()
	for r, l := range patch {
		out[r] = l
	}
	return out
}

// Clone returns a deep copy of p
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for r, l := range p {
		out[r] = l
	}
	return out
}

// Total reports whether every catalog resource has a valid level
func (p Permissions) Total() bool {
	for _, r := range resourceCatalog {
		if l, ok := p[r]; !ok || !l.Valid() {
			return false
		}
	}
	return true
}

// Equal reports whether both mappings grant the same levels
func (p Permissions) Equal(other Permissions) bool {
	for _, r := range resourceCatalog {
		if p.Level(r) != other.Level(r) {
			return false
		}
	}
	return true
}

// sortedResources returns the keys of a partial mapping in a stable order
func sortedResources(partial map[Resource]PermissionLevel) []Resource {
	keys := make([]Resource, 0, len(partial))
	for r := range partial {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
