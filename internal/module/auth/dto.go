package auth

import (
	"time"

	"github.com/teamtask/server/internal/module/user"
)

// RegisterRequest represents an account registration.
// InviteToken is present when the user arrives from an invite email.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// LoginRequest represents a password login.
type LoginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// RefreshRequest carries a refresh token in the body for non-browser clients.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair holds a session's tokens.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Session is the result of a successful register or login.
type Session struct {
	User   *user.User
	Tokens *TokenPair
}

// SessionResponse is the public view of a Session.
type SessionResponse struct {
	User   *user.UserResponse `json:"user"`
	Tokens *TokenPair         `json:"tokens"`
}

// ToResponse converts a Session to its public view.
func (s *Session) ToResponse() *SessionResponse {
	return &SessionResponse{User: s.User.ToResponse(), Tokens: s.Tokens}
}
