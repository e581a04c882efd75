package store

// Role is the system-wide role of a user.
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleMember     Role = "member"
	RoleViewer     Role = "viewer"
)

func (r Role) String() string {
	return string(r)
}

// IsAdmin returns true for roles with administrative rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	Name      string
	Email     string
	Role      Role
	CreatedTs int64
	UpdatedTs int64
	ID        int32
}

type FindUser struct {
	ID    *int32
	Email *string
	// Name matches case-insensitively when set.
	Name *string
}

type UpdateUser struct {
	Name      *string
	Email     *string
	Role      *Role
	UpdatedTs *int64
	ID        int32
}

type DeleteUser struct {
	ID int32
}
