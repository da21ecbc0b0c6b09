package policy

// Role is an actor's role within one team.
type Role string

const (
	// RoleNone means the actor holds no Membership in the team.
	RoleNone   Role = ""
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// roleLevel maps roles to their hierarchy level (higher = more permissions).
var roleLevel = map[Role]int{
	RoleAdmin:  100,
	RoleMember: 50,
}

// Level returns the hierarchy level of the role.
func (r Role) Level() int {
	return roleLevel[r]
}

// IsAtLeast checks if this role has at least the same level as another role.
func (r Role) IsAtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// IsValid checks if the role can be stored on a Membership.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// IsMember reports whether the role denotes any Membership.
func (r Role) IsMember() bool {
	return r.IsValid()
}
