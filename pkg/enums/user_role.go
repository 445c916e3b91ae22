package enums

// UserRole is the platform role carried in access tokens.
type UserRole string

const (
	UserRoleBidder UserRole = "bidder"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

var userRoles = values[UserRole]{UserRoleBidder, UserRoleSeller, UserRoleAdmin}

func (r UserRole) IsValid() bool { return userRoles.has(r) }

func ParseUserRole(raw string) (UserRole, error) {
	return userRoles.parse("user role", raw)
}
