package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/cache"
	"github.com/teamtask/server/internal/utils/metrics"
	"github.com/teamtask/server/internal/utils/middleware"
)

// UserStore is the identity store used by the auth service.
type UserStore interface {
	Register(ctx context.Context, in *user.RegisterInput) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// InviteResolver turns pending invites into memberships once the invitee
// has proven ownership of the invited address.
type InviteResolver interface {
	ResolveInvites(ctx context.Context, u *user.User, teamID uuid.UUID) error
}

// Service provides session operations.
type Service struct {
	users   UserStore
	invites InviteResolver
	jwt     *JWTManager
	signer  *InviteSigner
	revoked cache.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new auth service.
// revoked holds the ids of logged-out refresh tokens until they expire.
func NewService(
	users UserStore,
	invites InviteResolver,
	jwtManager *JWTManager,
	signer *InviteSigner,
	revoked cache.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:   users,
		invites: invites,
		jwt:     jwtManager,
		signer:  signer,
		revoked: revoked,
		metrics: m,
		logger:  logger,
	}
}

// Register creates an account and opens a session.
// With an invite token, pending invites for the new address are resolved.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Session, error) {
	var inviteTeam uuid.UUID
	if req.InviteToken != "" {
		teamID, err := s.signer.Parse(req.InviteToken)
		if err != nil {
			return nil, err
		}
		inviteTeam = teamID
	}

	u, err := s.users.Register(ctx, &user.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAuthEvent("register")

	if inviteTeam != uuid.Nil {
		u = s.resolveInvites(ctx, u, inviteTeam)
	}

	return s.openSession(u)
}

// Login authenticates with email and password and opens a session.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	u, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			s.metrics.RecordAuthEvent("login_failed")
		}
		return nil, err
	}
	s.metrics.RecordAuthEvent("login")

	if req.InviteToken != "" {
		teamID, err := s.signer.Parse(req.InviteToken)
		if err != nil {
			s.logger.Debug("ignoring invalid invite token on login",
				zap.String("user_id", u.ID.String()),
				zap.Error(err),
			)
		} else {
			u = s.resolveInvites(ctx, u, teamID)
		}
	}

	return s.openSession(u)
}

// resolveInvites resolves pending invites and returns the reloaded user.
// A failure does not undo the account or the login.
func (s *Service) resolveInvites(ctx context.Context, u *user.User, teamID uuid.UUID) *user.User {
	if err := s.invites.ResolveInvites(ctx, u, teamID); err != nil {
		s.logger.Error("resolve invites failed",
			zap.String("user_id", u.ID.String()),
			zap.String("team_id", teamID.String()),
			zap.Error(err),
		)
		return u
	}

	reloaded, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return u
	}
	return reloaded
}

func (s *Service) openSession(u *user.User) (*Session, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt, err := s.jwt.GenerateRefreshToken(u)
	if err != nil {
		return nil, err
	}

	return &Session{
		User: u,
		Tokens: &TokenPair{
			AccessToken:      access,
			RefreshToken:     refresh,
			TokenType:        "Bearer",
			ExpiresIn:        int64(s.jwt.GetAccessTokenExpiry().Seconds()),
			ExpiresAt:        expiresAt,
			RefreshExpiresAt: refreshExpiresAt,
		},
	}, nil
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *user.User, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.revoked.Get(ctx, claims.ID); err == nil {
		return nil, nil, ErrRevokedToken
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}

	access, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordAuthEvent("refresh")

	return &TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.GetAccessTokenExpiry().Seconds()),
		ExpiresAt:   expiresAt,
	}, u, nil
}

// Logout revokes a refresh token for the rest of its lifetime.
// Invalid or already expired tokens need no revocation.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, claims.ID, claims.UserID.String(), ttl); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.metrics.RecordAuthEvent("logout")
	s.logger.Info("session revoked", zap.String("user_id", claims.UserID.String()))
	return nil
}

// VerifyAccess validates an access token.
func (s *Service) VerifyAccess(token string) (*middleware.Identity, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// RefreshAccess issues a new access token from a refresh token.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (string, *middleware.Identity, error) {
	tokens, u, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return "", nil, err
	}
	return tokens.AccessToken, &middleware.Identity{UserID: u.ID, Email: u.Email}, nil
}

// AccessCookieMaxAge returns the access cookie lifetime in seconds.
func (s *Service) AccessCookieMaxAge() int {
	return int(s.jwt.GetAccessTokenExpiry().Seconds())
}
