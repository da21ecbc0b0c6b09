package user

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`

	// TeamIDs mirrors the resolved memberships held in team_members.
	TeamIDs pq.StringArray `json:"team_ids" gorm:"column:team_ids;type:text[];not null;default:'{}'"`

	Calendar CalendarCredential `json:"-" gorm:"embedded;embeddedPrefix:calendar_"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// CalendarCredential is the Google Calendar OAuth bundle attached to a user.
type CalendarCredential struct {
	AccessToken  string     `gorm:"column:access_token"`
	RefreshToken string     `gorm:"column:refresh_token"`
	Expiry       *time.Time `gorm:"column:token_expiry"`
}

// Connected reports whether a usable credential is stored.
func (c CalendarCredential) Connected() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// HasTeam reports whether teamID is in the user's team list.
func (u *User) HasTeam(teamID uuid.UUID) bool {
	return slices.Contains(u.TeamIDs, teamID.String())
}

// TeamUUIDs parses the team list, skipping malformed entries.
func (u *User) TeamUUIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.TeamIDs))
	for _, raw := range u.TeamIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
