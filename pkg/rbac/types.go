package rbac

import (
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/errdefs"
	"github.com/asakaida/rolegate/internal/infrastructure/config"
	"github.com/asakaida/rolegate/internal/services/authorization"
	"github.com/asakaida/rolegate/internal/services/directory"
	"github.com/asakaida/rolegate/internal/services/snapshot"
)

// Entities
type (
	Role            = entities.Role
	User            = entities.User
	Status          = entities.Status
	Resource        = entities.Resource
	PermissionLevel = entities.PermissionLevel
	Permissions     = entities.Permissions
	Snapshot        = entities.Snapshot
)

// Store inputs and outputs
type (
	RolePatch = directory.RolePatch
	UserInput = directory.UserInput
	UserPatch = directory.UserPatch
	Stats     = directory.Stats
)

// Authorization results
type (
	Decision = authorization.Decision
	Reason   = authorization.Reason
	Check    = authorization.Check
)

// Origin tells whether the engine started from stored state or seed data
type Origin = snapshot.Origin

// Config is the environment-driven engine configuration
type Config = config.Config

// Error classes
type (
	ErrorCode       = errdefs.Code
	ValidationError = errdefs.ValidationError
	NotFoundError   = errdefs.NotFoundError
	ConflictError   = errdefs.ConflictError
)

const (
	StatusActive   = entities.StatusActive
	StatusInactive = entities.StatusInactive

	ResourceDashboard        = entities.ResourceDashboard
	ResourceUsers            = entities.ResourceUsers
	ResourceRoles            = entities.ResourceRoles
	ResourceThreatMonitoring = entities.ResourceThreatMonitoring
	ResourceReports          = entities.ResourceReports
	ResourceSettings         = entities.ResourceSettings

	LevelNone   = entities.LevelNone
	LevelView   = entities.LevelView
	LevelCreate = entities.LevelCreate
	LevelEdit   = entities.LevelEdit
	LevelDelete = entities.LevelDelete
	LevelFull   = entities.LevelFull

	ReasonGranted               = authorization.ReasonGranted
	ReasonInsufficientLevel     = authorization.ReasonInsufficientLevel
	ReasonUserInactiveOrUnknown = authorization.ReasonUserInactiveOrUnknown
	ReasonRoleMissing           = authorization.ReasonRoleMissing
	ReasonInvalidRequest        = authorization.ReasonInvalidRequest

	OriginStored = snapshot.OriginStored
	OriginSeed   = snapshot.OriginSeed

	ErrDuplicateName     = errdefs.DuplicateName
	ErrInvalidPermission = errdefs.InvalidPermission
	ErrRoleInUse         = errdefs.RoleInUse
	ErrMissingField      = errdefs.MissingField
	ErrInvalidEmail      = errdefs.InvalidEmail
	ErrInvalidStatus     = errdefs.InvalidStatus
	ErrRoleNotFound      = errdefs.RoleNotFound
	ErrNotFound          = errdefs.NotFound
)

// Resources returns the resource catalog in display order
func Resources() []Resource { return entities.Resources() }

// Levels returns every permission level in ascending order
func Levels() []PermissionLevel { return entities.Levels() }

// AtLeast reports whether level satisfies threshold
func AtLeast(level, threshold PermissionLevel) bool { return entities.AtLeast(level, threshold) }

// Seed returns the demo directory the engine starts from when nothing is stored
var Seed = entities.Seed

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return errdefs.IsValidation(err) }

// IsNotFound reports whether err is a missing role or user
func IsNotFound(err error) bool { return errdefs.IsNotFound(err) }

// IsConflict reports whether err is a uniqueness or referential conflict
func IsConflict(err error) bool { return errdefs.IsConflict(err) }

// CodeOf returns the code carried by err, or "" when there is none
func CodeOf(err error) ErrorCode { return errdefs.CodeOf(err) }
