package team

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamtask/server/internal/module/policy"
)

// Role is a Membership's role.
type Role = policy.Role

const (
	RoleAdmin  = policy.RoleAdmin
	RoleMember = policy.RoleMember
)

// Team is a group of users sharing tasks.
type Team struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Team) TableName() string {
	return "teams"
}

// Membership binds a user, or a reserved email, to a role in a team.
// It is either Resolved or Placeholder.
type Membership interface {
	MemberEmail() string
	MemberRole() Role
	isMembership()
}

// Resolved is a Membership bound to a registered user.
type Resolved struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// Placeholder is a Membership reserved for an invited email that has no
// account yet.
type Placeholder struct {
	Email string
	Role  Role
}

// MemberEmail returns the member's email.
func (m Resolved) MemberEmail() string { return m.Email }

// MemberRole returns the member's role.
func (m Resolved) MemberRole() Role { return m.Role }

func (Resolved) isMembership() {}

// MemberEmail returns the reserved email.
func (m Placeholder) MemberEmail() string { return m.Email }

// MemberRole returns the role granted on resolution.
func (m Placeholder) MemberRole() Role { return m.Role }

func (Placeholder) isMembership() {}

// Member is the stored form of a Membership. Rows are ordered by ID.
type Member struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	TeamID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_team_members_team_email,priority:1"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"`
	Email     string     `gorm:"not null;uniqueIndex:idx_team_members_team_email,priority:2"`
	Role      Role       `gorm:"type:varchar(16);not null;default:member"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (Member) TableName() string {
	return "team_members"
}

// Membership converts the row to its variant.
func (m *Member) Membership() Membership {
	if m.UserID == nil {
		return Placeholder{Email: m.Email, Role: m.Role}
	}
	return Resolved{UserID: *m.UserID, Email: m.Email, Role: m.Role}
}

func newMember(teamID uuid.UUID, ms Membership) *Member {
	row := &Member{TeamID: teamID, Email: ms.MemberEmail(), Role: ms.MemberRole()}
	switch m := ms.(type) {
	case Resolved:
		id := m.UserID
		row.UserID = &id
	case Placeholder:
	}
	return row
}

// ResolvedMembers returns the resolved entries of ms in order, deduplicated by user id.
func ResolvedMembers(ms []Membership) []Resolved {
	seen := make(map[uuid.UUID]struct{}, len(ms))
	out := make([]Resolved, 0, len(ms))
	for _, m := range ms {
		switch v := m.(type) {
		case Resolved:
			if _, dup := seen[v.UserID]; dup {
				continue
			}
			seen[v.UserID] = struct{}{}
			out = append(out, v)
		case Placeholder:
		}
	}
	return out
}
