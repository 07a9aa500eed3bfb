package enums

// UserRole gates admin-only routes.
type UserRole string

const (
	UserRoleStudent UserRole = "user"
	UserRoleAdmin   UserRole = "admin"
)

var userRoles = set[UserRole]{UserRoleStudent, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }
func (r UserRole) IsValid() bool  { return userRoles.has(r) }
