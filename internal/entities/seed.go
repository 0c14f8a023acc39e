package entities

import (
	"time"

	"github.com/google/uuid"
)

// seedNamespace scopes the name-based ids of the bootstrap data
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/asakaida/rolegate/seed"))

// SeedID returns the deterministic id of a bootstrap entity
func SeedID(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+"/"+name)).String()
}

// Seed returns the bootstrap state used when no snapshot has been stored yet
func Seed(now time.Time) *Snapshot {
	now = now.UTC()

	all := func(l PermissionLevel) map[Resource]PermissionLevel {
		m := make(map[Resource]PermissionLevel, len(resourceCatalog))
		for _, r := range resourceCatalog {
			m[r] = l
		}
		return m
	}

	analyst := all(LevelView)
	analyst[ResourceUsers] = LevelEdit

	roles := []*Role{
		{ID: SeedID("role", "Admin"), Name: "Admin", Permissions: NewPermissions(all(LevelFull))},
		{ID: SeedID("role", "Security Analyst"), Name: "Security Analyst", Permissions: NewPermissions(analyst)},
		{ID: SeedID("role", "Readonly User"), Name: "Readonly User", Permissions: NewPermissions(all(LevelView))},
	}

	users := []*User{
		{ID: SeedID("user", "john.doe"), Name: "John Doe", Email: "john.doe@vrvsecurity.com", RoleID: roles[0].ID, Status: StatusActive},
		{ID: SeedID("user", "jane.smith"), Name: "Jane Smith", Email: "jane.smith@vrvsecurity.com", RoleID: roles[1].ID, Status: StatusActive},
		{ID: SeedID("user", "mike.johnson"), Name: "Mike Johnson", Email: "mike.johnson@vrvsecurity.com", RoleID: roles[2].ID, Status: StatusInactive},
	}

	for _, r := range roles {
		r.CreatedAt, r.UpdatedAt = now, now
	}
	for _, u := range users {
		u.CreatedAt, u.UpdatedAt = now, now
	}

	return &Snapshot{Roles: roles, Users: users}
}
