package user

import (
	"time"

	"github.com/google/uuid"
)

// RegisterInput holds the fields needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateProfileRequest represents a profile update.
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                uuid.UUID   `json:"id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	TeamIDs           []uuid.UUID `json:"team_ids"`
	CalendarConnected bool        `json:"calendar_connected"`
	CreatedAt         time.Time   `json:"created_at"`
}

// ToResponse converts a User to its public view.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		TeamIDs:           u.TeamUUIDs(),
		CalendarConnected: u.Calendar.Connected(),
		CreatedAt:         u.CreatedAt,
	}
}
