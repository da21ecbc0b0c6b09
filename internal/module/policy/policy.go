// Package policy holds the authorization rules for teams and tasks.
// Every function is pure: callers resolve the actor's role in the relevant
// team and pass it in.
package policy

import "github.com/google/uuid"

// Actor is an authenticated user together with their role in the team the
// decision concerns.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// TaskRef is the part of a task the rules look at.
type TaskRef struct {
	CreatedBy  uuid.UUID
	AssignedTo uuid.UUID
}

// TeamRef is the part of a team the rules look at.
type TeamRef struct {
	CreatedBy uuid.UUID
}

// Scope is the set of a team's tasks an actor may list.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeAssigned
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeAssigned:
		return "assigned"
	default:
		return "none"
	}
}

func related(a Actor, t TaskRef) bool {
	return a.UserID != uuid.Nil && (a.UserID == t.CreatedBy || a.UserID == t.AssignedTo)
}

// CanReadTask reports whether the actor may read a single task.
func CanReadTask(a Actor, t TaskRef) bool {
	return related(a, t) || a.Role == RoleAdmin
}

// CanWriteTask reports whether the actor may update or delete a task.
// Creator, assignee and team admins qualify; mere existence of the task is
// not enough.
func CanWriteTask(a Actor, t TaskRef) bool {
	return related(a, t) || a.Role == RoleAdmin
}

// TeamTaskScope returns which of a team's tasks a role may list.
func TeamTaskScope(role Role) Scope {
	switch role {
	case RoleAdmin:
		return ScopeAll
	case RoleMember:
		return ScopeAssigned
	default:
		return ScopeNone
	}
}

// CanCreateTeam reports whether the actor may create a team.
func CanCreateTeam(a Actor) bool {
	return a.UserID != uuid.Nil
}

// CanDeleteTeam reports whether the actor may delete the team.
// Ownership is by creator identity, not by admin role.
func CanDeleteTeam(a Actor, t TeamRef) bool {
	return a.UserID != uuid.Nil && a.UserID == t.CreatedBy
}

// CanPromote reports whether the actor may promote members.
func CanPromote(a Actor) bool {
	return a.Role == RoleAdmin
}

// CanInvite reports whether the actor may invite to the team.
func CanInvite(a Actor) bool {
	return a.Role.IsMember()
}

// CanRemoveMember reports whether the actor may remove members.
func CanRemoveMember(a Actor) bool {
	return a.Role == RoleAdmin
}

// CanCreateTeamTask reports whether the actor may create tasks in the team.
func CanCreateTeamTask(a Actor) bool {
	return a.Role.IsMember()
}
