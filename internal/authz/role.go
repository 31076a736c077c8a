package authz

// Role represents a user's privilege level within an organization.
// Roles are totally ordered: OWNER > ADMIN > MEMBER > VIEWER.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// roleLevel defines the role hierarchy (higher number = more permissions)
var roleLevel = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	_, ok := roleLevel[r]
	return ok
}

// AtLeast reports whether r satisfies the required role in the privilege order.
func (r Role) AtLeast(required Role) bool {
	return roleLevel[r] >= roleLevel[required]
}

// CanMutate returns true if the role may modify organization-level resources
func (r Role) CanMutate() bool {
	return r == RoleOwner || r == RoleAdmin
}
