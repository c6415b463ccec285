package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermissionOwnerBypass(t *testing.T) {
	// The owner flag bypasses the matrix entirely, including resources the
	// matrix has never heard of.
	assert.True(t, HasPermission(nil, true, ResourceFacturation, ActionDelete, nil))
	assert.True(t, HasPermission(nil, true, Resource("unknown"), Action("unknown"), nil))
	assert.True(t, HasPermission([]Role{RoleObserver}, true, ResourceFacturation, ActionManage, nil))
}

func TestHasPermissionFailClosed(t *testing.T) {
	tests := []struct {
		name     string
		roles    []Role
		resource Resource
		action   Action
	}{
		{name: "no roles", roles: nil, resource: ResourceEvaluations, action: ActionView},
		{name: "unknown role", roles: []Role{Role("wizard")}, resource: ResourceEvaluations, action: ActionView},
		{name: "unknown resource", roles: []Role{RoleAdmin}, resource: Resource("nope"), action: ActionView},
		{name: "missing action entry", roles: []Role{RoleRepresentative}, resource: ResourceEvaluations, action: ActionDelete},
		{name: "facturation hidden from qse", roles: []Role{RoleQSE}, resource: ResourceFacturation, action: ActionView},
		{name: "observer cannot export", roles: []Role{RoleObserver}, resource: ResourceExports, action: ActionCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, HasPermission(tt.roles, false, tt.resource, tt.action, nil))
		})
	}
}

func TestHasPermissionLimitedRequiresScopeCheck(t *testing.T) {
	roles := []Role{RoleSiteManager}

	// Limited grants allow only with an affirmative scope check.
	assert.True(t, HasPermission(roles, false, ResourceEvaluations, ActionModifyScope, func() bool { return true }))
	assert.False(t, HasPermission(roles, false, ResourceEvaluations, ActionModifyScope, func() bool { return false }))
	assert.False(t, HasPermission(roles, false, ResourceEvaluations, ActionModifyScope, nil))
}

func TestHasPermissionFirstPermissiveRoleWins(t *testing.T) {
	// A limited grant that fails its scope check must not short-circuit:
	// a later role holding full access still wins.
	roles := []Role{RoleSiteManager, RoleQSE}
	assert.True(t, HasPermission(roles, false, ResourceEvaluations, ActionUpdate, func() bool { return false }))
	assert.True(t, HasPermission(roles, false, ResourceEvaluations, ActionUpdate, nil))

	// Order reversed makes no difference to the outcome.
	roles = []Role{RoleQSE, RoleSiteManager}
	assert.True(t, HasPermission(roles, false, ResourceEvaluations, ActionUpdate, nil))
}

func TestHasPermissionLegacyAliases(t *testing.T) {
	tests := []struct {
		alias     Role
		canonical Role
	}{
		{"admin_tenant", RoleAdmin},
		{"manager", RoleSiteManager},
		{"operator", RoleObserver},
		{"consultant", RoleAuditor},
	}

	for _, tt := range tests {
		t.Run(string(tt.alias), func(t *testing.T) {
			assert.Equal(t, tt.canonical, NormalizeRole(tt.alias))

			// The alias behaves exactly like the canonical role.
			got := HasPermission([]Role{tt.alias}, false, ResourceEvaluations, ActionView, nil)
			want := HasPermission([]Role{tt.canonical}, false, ResourceEvaluations, ActionView, nil)
			assert.Equal(t, want, got)
		})
	}
}

func TestHasPermissionAliasKeepsLimitedSemantics(t *testing.T) {
	// "manager" is the legacy name for site_manager; its limited grants
	// still require the scope check.
	roles := []Role{Role("manager")}
	assert.True(t, HasPermission(roles, false, ResourceEvaluations, ActionModifyScope, func() bool { return true }))
	assert.False(t, HasPermission(roles, false, ResourceEvaluations, ActionModifyScope, nil))
}

func TestRolePermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		resource Resource
		action   Action
		want     PermissionLevel
	}{
		{name: "admin full on facturation", role: RoleAdmin, resource: ResourceFacturation, action: ActionManage, want: PermissionFull},
		{name: "site manager limited scope change", role: RoleSiteManager, resource: ResourceEvaluations, action: ActionModifyScope, want: PermissionLimited},
		{name: "representative can raise observations", role: RoleRepresentative, resource: ResourceObservations, action: ActionCreate, want: PermissionFull},
		{name: "auditor cannot mutate", role: RoleAuditor, resource: ResourceEvaluations, action: ActionUpdate, want: PermissionNone},
		{name: "unknown role", role: Role("wizard"), resource: ResourceEvaluations, action: ActionView, want: PermissionNone},
		{name: "raw lookup does not normalize aliases", role: Role("manager"), resource: ResourceEvaluations, action: ActionView, want: PermissionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RolePermission(tt.role, tt.resource, tt.action))
		})
	}
}

func TestNormalizeRoles(t *testing.T) {
	got := NormalizeRoles([]Role{"manager", RoleQSE, "consultant"})
	assert.Equal(t, []Role{RoleSiteManager, RoleQSE, RoleAuditor}, got)
}
