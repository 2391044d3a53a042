package session_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

func TestRoleHierarchy(t *testing.T) {
	tests := []struct {
		role     session.Role
		required session.Role
		want     bool
	}{
		{session.RoleUser, session.RoleUser, true},
		{session.RoleUser, session.RoleAdmin, false},
		{session.RoleAdmin, session.RoleUser, true},
		{session.RoleAdmin, session.RoleSuperAdmin, false},
		{session.RoleSuperAdmin, session.RoleAdmin, true},
		{session.RoleSuperAdmin, session.RoleUser, true},
		{"admin", session.RoleAdmin, true},
		{"Admin", "superadmin", false},
		{"GUEST", session.RoleUser, false},
		{session.RoleAdmin, "GUEST", false},
		{"", session.RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.IsAtLeast(tt.required))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := session.ParseRole("  superAdmin ")
	assert.True(t, ok)
	assert.Equal(t, session.RoleSuperAdmin, role)

	_, ok = session.ParseRole("owner")
	assert.False(t, ok)

	assert.Equal(t, []session.Role{session.RoleUser, session.RoleAdmin, session.RoleSuperAdmin}, session.GetAllRoles())
}

func TestRoleUnmarshalNormalizesCase(t *testing.T) {
	var user session.User
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","role":"admin"}`), &user))
	assert.Equal(t, session.RoleAdmin, user.Role)
	assert.Equal(t, "ADMIN", user.Role.String())
}

func TestHasRoleAndHasExactRole(t *testing.T) {
	admin := newTestUser("a", session.RoleAdmin)

	assert.True(t, session.HasRole(admin, session.RoleUser))
	assert.True(t, session.HasRole(admin, session.RoleAdmin))
	assert.False(t, session.HasRole(admin, session.RoleSuperAdmin))

	assert.True(t, session.HasExactRole(admin, session.RoleAdmin))
	assert.True(t, session.HasExactRole(admin, "admin"))
	assert.False(t, session.HasExactRole(admin, session.RoleUser))

	assert.True(t, session.HasAnyRole(admin, session.RoleSuperAdmin, session.RoleAdmin))
	assert.False(t, session.HasAnyRole(admin, session.RoleSuperAdmin))

	assert.False(t, session.HasRole(nil, session.RoleUser))
	assert.False(t, session.HasExactRole(nil, session.RoleUser))
}

func TestPermissions(t *testing.T) {
	user := newTestUser("u", session.RoleUser)
	unverified := newTestUser("v", session.RoleUser)
	unverified.IsVerified = false
	inactive := newTestUser("i", session.RoleAdmin)
	inactive.IsActive = false
	admin := newTestUser("a", session.RoleAdmin)
	super := newTestUser("s", session.RoleSuperAdmin)

	assert.True(t, session.Can(user, session.PermissionChat))
	assert.True(t, session.Can(user, session.PermissionDocumentsUpload))
	assert.False(t, session.Can(unverified, session.PermissionDocumentsUpload))
	assert.True(t, session.Can(unverified, session.PermissionDocumentsQuery))

	assert.False(t, session.Can(user, session.PermissionUsersManage))
	assert.True(t, session.Can(admin, session.PermissionUsersManage))
	assert.False(t, session.Can(inactive, session.PermissionUsersManage))
	assert.True(t, session.Can(inactive, session.PermissionProfileUpdateSelf))

	assert.False(t, session.Can(admin, session.PermissionSystemAdminister))
	assert.True(t, session.Can(super, session.PermissionSystemAdminister))

	assert.False(t, session.Can(super, session.Permission("billing:refund")))
	assert.False(t, session.Can(nil, session.PermissionChat))
}

func TestSnapshotPredicatesRequireAuthentication(t *testing.T) {
	admin := newTestUser("a", session.RoleAdmin)

	snap := session.Snapshot{State: session.StateAuthenticated, User: admin, IsAuthenticated: true}
	assert.True(t, snap.HasRole(session.RoleAdmin))
	assert.True(t, snap.Can(session.PermissionUsersManage))

	stale := session.Snapshot{State: session.StateUnauthenticated, User: admin}
	assert.False(t, stale.HasRole(session.RoleUser))
	assert.False(t, stale.Can(session.PermissionChat))
}
