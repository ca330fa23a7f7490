package enums

import "fmt"

// UserRole is the platform role carried in the identity token.
type UserRole string

const (
	UserRoleStudent      UserRole = "student"
	UserRoleInstructor   UserRole = "instructor"
	UserRoleSupervisor   UserRole = "supervisor"
	UserRoleAdmin        UserRole = "admin"
	UserRoleAdminGeneral UserRole = "admin_general"
)

var validUserRoles = []UserRole{
	UserRoleStudent,
	UserRoleInstructor,
	UserRoleSupervisor,
	UserRoleAdmin,
	UserRoleAdminGeneral,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin groups both administrative roles.
func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin || r == UserRoleAdminGeneral
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
