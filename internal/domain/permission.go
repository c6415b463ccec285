// Package domain contains core business types and interfaces.
//
// This file defines the role/resource/action permission matrix and its
// resolver. The matrix is hand-authored, loaded once and read-only at
// runtime; absence of an entry always degrades to "none" (fail closed).
package domain

// Role identifies an actor type within a tenant. The owner is a distinguished
// flag on the user, not a matrix role: it bypasses the matrix entirely.
type Role string

const (
	RoleOwner          Role = "owner"
	RoleAdmin          Role = "admin"
	RoleQSE            Role = "qse"
	RoleSiteManager    Role = "site_manager"
	RoleRepresentative Role = "representative"
	RoleObserver       Role = "observer"
	RoleAuditor        Role = "auditor"
)

// roleAliases maps legacy role strings, still present in stored data, to
// their current names. Applied once at the boundary where external role
// strings enter the system.
var roleAliases = map[Role]Role{
	"admin_tenant": RoleAdmin,
	"manager":      RoleSiteManager,
	"operator":     RoleObserver,
	"consultant":   RoleAuditor,
}

// NormalizeRole resolves legacy aliases to the current role name.
func NormalizeRole(r Role) Role {
	if canonical, ok := roleAliases[r]; ok {
		return canonical
	}
	return r
}

// NormalizeRoles maps NormalizeRole over a role list, preserving order.
func NormalizeRoles(roles []Role) []Role {
	out := make([]Role, len(roles))
	for i, r := range roles {
		out[i] = NormalizeRole(r)
	}
	return out
}

// Resource identifies a permission-gated resource group.
type Resource string

const (
	ResourceEvaluations  Resource = "evaluations"
	ResourceActions      Resource = "actions"
	ResourceObservations Resource = "observations"
	ResourceOrganization Resource = "organization"
	ResourceFacturation  Resource = "facturation"
	ResourceAI           Resource = "ai"
	ResourceExports      Resource = "exports"
	ResourceConformite   Resource = "conformite"
)

// Action identifies an operation on a resource.
type Action string

const (
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionExport      Action = "export"
	ActionModifyScope Action = "modify_scope" // reassign a record's site/work unit
	ActionManage      Action = "manage"       // settings, members, validation
)

// PermissionLevel is the grant level of a matrix entry.
type PermissionLevel string

const (
	PermissionFull    PermissionLevel = "full"
	PermissionLimited PermissionLevel = "limited" // requires a scope check
	PermissionNone    PermissionLevel = "none"
)

// ScopeCheck is a caller-supplied predicate narrowing a limited grant to
// records within the actor's perimeter (e.g. their assigned site). The matrix
// never computes scope itself.
type ScopeCheck func() bool

type actionGrants map[Action]PermissionLevel

// allActionsFull grants every action at full level.
func allActionsFull() actionGrants {
	grants := actionGrants{}
	for _, a := range []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionExport, ActionModifyScope, ActionManage} {
		grants[a] = PermissionFull
	}
	return grants
}

// permissionMatrix maps role -> resource -> action -> level. Missing entries
// mean "none"; facturation is deliberately absent for every role but admin.
var permissionMatrix = map[Role]map[Resource]actionGrants{
	RoleAdmin: {
		ResourceEvaluations:  allActionsFull(),
		ResourceActions:      allActionsFull(),
		ResourceObservations: allActionsFull(),
		ResourceOrganization: allActionsFull(),
		ResourceFacturation:  allActionsFull(),
		ResourceAI:           allActionsFull(),
		ResourceExports:      allActionsFull(),
		ResourceConformite:   allActionsFull(),
	},
	RoleQSE: {
		ResourceEvaluations:  allActionsFull(),
		ResourceActions:      allActionsFull(),
		ResourceObservations: allActionsFull(),
		ResourceConformite:   allActionsFull(),
		ResourceAI: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
		},
		ResourceExports: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
			ActionExport: PermissionFull,
		},
		ResourceOrganization: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
			ActionUpdate: PermissionLimited,
		},
	},
	RoleSiteManager: {
		ResourceEvaluations: {
			ActionView:        PermissionFull,
			ActionCreate:      PermissionLimited,
			ActionUpdate:      PermissionLimited,
			ActionModifyScope: PermissionLimited,
		},
		ResourceActions: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionLimited,
			ActionUpdate: PermissionLimited,
		},
		ResourceObservations: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
			ActionUpdate: PermissionLimited,
		},
		ResourceOrganization: {
			ActionView: PermissionFull,
		},
		ResourceExports: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionLimited,
		},
		ResourceConformite: {
			ActionView: PermissionFull,
		},
	},
	RoleRepresentative: {
		ResourceEvaluations: {
			ActionView: PermissionFull,
		},
		ResourceActions: {
			ActionView: PermissionFull,
		},
		ResourceObservations: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
		},
		ResourceConformite: {
			ActionView: PermissionFull,
		},
	},
	RoleObserver: {
		ResourceEvaluations: {
			ActionView: PermissionLimited,
		},
		ResourceActions: {
			ActionView: PermissionLimited,
		},
		ResourceObservations: {
			ActionView:   PermissionLimited,
			ActionCreate: PermissionLimited,
		},
	},
	RoleAuditor: {
		ResourceEvaluations: {
			ActionView:   PermissionFull,
			ActionExport: PermissionFull,
		},
		ResourceActions: {
			ActionView:   PermissionFull,
			ActionExport: PermissionFull,
		},
		ResourceObservations: {
			ActionView: PermissionFull,
		},
		ResourceOrganization: {
			ActionView: PermissionFull,
		},
		ResourceConformite: {
			ActionView:   PermissionFull,
			ActionExport: PermissionFull,
		},
		ResourceExports: {
			ActionView:   PermissionFull,
			ActionCreate: PermissionFull,
			ActionExport: PermissionFull,
		},
	},
}

// HasPermission decides whether an actor holding the given roles may perform
// the action on the resource.
//
// The owner flag bypasses the matrix entirely. Roles are normalized through
// the legacy alias map and evaluated in the order supplied; the first
// permissive role wins. A "limited" grant requires an affirmative scopeCheck
// to allow, but never short-circuits to a denial: a later role may still
// grant full access. Missing matrix entries count as "none".
//
// This function never returns an error; absence of data denies access.
func HasPermission(roles []Role, isOwner bool, resource Resource, action Action, scopeCheck ScopeCheck) bool {
	if isOwner {
		return true
	}

	for _, role := range roles {
		switch RolePermission(NormalizeRole(role), resource, action) {
		case PermissionFull:
			return true
		case PermissionLimited:
			if scopeCheck != nil && scopeCheck() {
				return true
			}
		}
	}

	return false
}

// RolePermission returns the raw matrix entry for a single role without alias
// normalization or aggregation. Intended for UI hints (disabling a menu
// item), not enforcement.
func RolePermission(role Role, resource Resource, action Action) PermissionLevel {
	resources, ok := permissionMatrix[role]
	if !ok {
		return PermissionNone
	}
	grants, ok := resources[resource]
	if !ok {
		return PermissionNone
	}
	level, ok := grants[action]
	if !ok {
		return PermissionNone
	}
	return level
}
