package session

import (
	"encoding/json"
	"strings"
)

// Role is the coarse platform role. Values are always upper case.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

var roleHierarchy = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// ParseRole normalizes casing and surrounding whitespace. The second value reports
// whether the role is known.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleHierarchy[role]
	return role, ok
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	_, ok := roleHierarchy[r.normalized()]
	return ok
}

// Level returns the rank of the role, zero for unknown roles.
func (r Role) Level() int {
	return roleHierarchy[r.normalized()]
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	current := r.Level()
	required := minRole.Level()
	if current == 0 || required == 0 {
		return false
	}
	return current >= required
}

// Is reports exact role equality ignoring case.
func (r Role) Is(other Role) bool {
	return r.IsValid() && r.normalized() == other.normalized()
}

func (r Role) String() string {
	return string(r.normalized())
}

func (r Role) normalized() Role {
	role, _ := ParseRole(string(r))
	return role
}

// UnmarshalJSON accepts any casing from the backend.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Role(raw).normalized()
	return nil
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
}

// HasRole reports whether user holds role or a role above it.
func HasRole(user *User, role Role) bool {
	if user == nil {
		return false
	}
	return user.Role.IsAtLeast(role)
}

// HasExactRole reports whether user holds exactly role.
func HasExactRole(user *User, role Role) bool {
	if user == nil {
		return false
	}
	return user.Role.Is(role)
}

// HasAnyRole reports whether user satisfies at least one of roles.
func HasAnyRole(user *User, roles ...Role) bool {
	for _, role := range roles {
		if HasRole(user, role) {
			return true
		}
	}
	return false
}
