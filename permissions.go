package session

// Permission is a fine grained capability, orthogonal to the role order.
type Permission string

const (
	PermissionChat              Permission = "chat:use"
	PermissionDocumentsUpload   Permission = "documents:upload"
	PermissionDocumentsQuery    Permission = "documents:query"
	PermissionImagesGenerate    Permission = "images:generate"
	PermissionUsersManage       Permission = "admin:users:manage"
	PermissionSystemAdminister  Permission = "admin:system"
	PermissionProfileUpdateSelf Permission = "profile:update"
)

// PermissionRule describes what a user needs to hold a permission.
type PermissionRule struct {
	MinRole          Role
	RequiresVerified bool
	RequiresActive   bool
}

// PermissionChecker evaluates permissions for a user.
type PermissionChecker interface {
	Can(user *User, permission Permission) bool
}

// PermissionCheckerFunc adapts a predicate to the PermissionChecker interface.
type PermissionCheckerFunc func(user *User, permission Permission) bool

// Can implements PermissionChecker.
func (f PermissionCheckerFunc) Can(user *User, permission Permission) bool {
	if f == nil {
		return false
	}
	return f(user, permission)
}

// PermissionSet is a rule table keyed by permission.
type PermissionSet map[Permission]PermissionRule

// DefaultPermissions returns the platform rule table.
func DefaultPermissions() PermissionSet {
	return PermissionSet{
		PermissionChat:              {MinRole: RoleUser, RequiresActive: true},
		PermissionDocumentsUpload:   {MinRole: RoleUser, RequiresVerified: true, RequiresActive: true},
		PermissionDocumentsQuery:    {MinRole: RoleUser, RequiresActive: true},
		PermissionImagesGenerate:    {MinRole: RoleUser, RequiresVerified: true, RequiresActive: true},
		PermissionProfileUpdateSelf: {MinRole: RoleUser},
		PermissionUsersManage:       {MinRole: RoleAdmin, RequiresActive: true},
		PermissionSystemAdminister:  {MinRole: RoleSuperAdmin, RequiresActive: true},
	}
}

// Can implements PermissionChecker. Unknown permissions are denied.
func (ps PermissionSet) Can(user *User, permission Permission) bool {
	if user == nil {
		return false
	}

	rule, ok := ps[permission]
	if !ok {
		return false
	}

	if !user.Role.IsAtLeast(rule.MinRole) {
		return false
	}

	if rule.RequiresVerified && !user.IsVerified {
		return false
	}

	if rule.RequiresActive && !user.IsActive {
		return false
	}

	return true
}

// Can checks permission against the default rule table.
func Can(user *User, permission Permission) bool {
	return DefaultPermissions().Can(user, permission)
}
