package team

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the outcome of an invite.
type InviteStatus string

const (
	// InviteStatusMember means the invitee already had an account and is now a member.
	InviteStatusMember InviteStatus = "member"
	// InviteStatusInvited means a placeholder was reserved and a registration link sent.
	InviteStatusInvited InviteStatus = "invited"
)

// InviteResult describes what SendInvite did.
type InviteResult struct {
	Email     string       `json:"email"`
	Status    InviteStatus `json:"status"`
	EmailSent bool         `json:"email_sent"`
}

// Detail is a team with its members, as seen by one member.
type Detail struct {
	Team    *Team
	Members []Membership
	MyRole  Role
}

// CreateTeamRequest represents a team creation.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// EmailRequest names a member or invitee by email.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TeamResponse is the public view of a team.
type TeamResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	CreatedBy uuid.UUID         `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
	MyRole    string            `json:"my_role,omitempty"`
	Members   []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse is the public view of a Membership.
type MemberResponse struct {
	UserID  *uuid.UUID `json:"user_id"`
	Email   string     `json:"email"`
	Role    string     `json:"role"`
	Pending bool       `json:"pending"`
}

// ToResponse converts a Team to its public view.
func (t *Team) ToResponse() *TeamResponse {
	return &TeamResponse{
		ID:        t.ID,
		Name:      t.Name,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
	}
}

// ToResponse converts a Detail to its public view.
func (d *Detail) ToResponse() *TeamResponse {
	resp := d.Team.ToResponse()
	resp.MyRole = string(d.MyRole)
	resp.Members = make([]*MemberResponse, len(d.Members))
	for i, m := range d.Members {
		resp.Members[i] = toMemberResponse(m)
	}
	return resp
}

func toMemberResponse(ms Membership) *MemberResponse {
	switch m := ms.(type) {
	case Resolved:
		id := m.UserID
		return &MemberResponse{UserID: &id, Email: m.Email, Role: string(m.Role)}
	case Placeholder:
		return &MemberResponse{Email: m.Email, Role: string(m.Role), Pending: true}
	default:
		return &MemberResponse{Email: ms.MemberEmail(), Role: string(ms.MemberRole())}
	}
}
