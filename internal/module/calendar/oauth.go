package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/cache"
	apperrors "github.com/teamtask/server/internal/shared/errors"
	"github.com/teamtask/server/internal/utils/random"
)

const stateTTL = 10 * time.Minute

// Connector runs the OAuth consent flow that links a user's Google Calendar.
type Connector struct {
	oauth   *oauth2.Config
	states  cache.Store
	creds   CredentialStore
	enabled bool
	logger  *zap.Logger
}

// NewConnector creates a connector. States are single-use and expire after ten minutes.
func NewConnector(oauthCfg *oauth2.Config, states cache.Store, creds CredentialStore, logger *zap.Logger) *Connector {
	return &Connector{
		oauth:   oauthCfg,
		states:  states,
		creds:   creds,
		enabled: oauthCfg.ClientID != "" && oauthCfg.ClientSecret != "",
		logger:  logger,
	}
}

// AuthURL returns the consent URL for userID.
// Offline access with forced consent makes Google return a refresh token.
func (c *Connector) AuthURL(ctx context.Context, userID uuid.UUID) (string, error) {
	if !c.enabled {
		return "", ErrCalendarDisabled
	}

	state, err := random.URLToken(32)
	if err != nil {
		return "", apperrors.Internal("could not start authorization", err)
	}
	if err := c.states.Set(ctx, state, userID.String(), stateTTL); err != nil {
		return "", err
	}

	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Complete consumes state, exchanges code and stores the credential.
// It returns the user the credential belongs to.
func (c *Connector) Complete(ctx context.Context, state, code string) (uuid.UUID, error) {
	if state == "" || code == "" {
		return uuid.Nil, ErrInvalidState
	}

	raw, err := c.states.Take(ctx, state)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return uuid.Nil, ErrInvalidState
		}
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		c.logger.Warn("calendar oauth exchange failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return uuid.Nil, apperrors.Wrap(ErrExchangeFailed, err)
	}

	expiry := token.Expiry
	cred := user.CalendarCredential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       &expiry,
	}
	if err := c.creds.SaveCalendarCredential(ctx, userID, cred); err != nil {
		return uuid.Nil, err
	}

	c.logger.Info("calendar connected", zap.String("user_id", userID.String()))
	return userID, nil
}
