package calendar

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/teamtask/server/internal/module/user"
)

// persistingTokenSource writes refreshed tokens back to the credential store.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	userID uuid.UUID
	creds  CredentialStore
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

// Token returns a valid token, saving it when the access token changed.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken == s.last {
		return token, nil
	}

	expiry := token.Expiry
	cred := user.CalendarCredential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       &expiry,
	}
	// The refresh request's context may be gone by now.
	if err := s.creds.SaveCalendarCredential(context.Background(), s.userID, cred); err != nil {
		s.logger.Warn("failed to persist refreshed calendar token",
			zap.String("user_id", s.userID.String()),
			zap.Error(err),
		)
		return token, nil
	}
	s.last = token.AccessToken
	return token, nil
}
