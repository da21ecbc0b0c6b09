package auth

import (
	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Auth module errors.
var (
	ErrInvalidToken       = apperrors.Unauthorized("invalid_token", "invalid token")
	ErrInvalidTokenClaims = apperrors.Unauthorized("invalid_token_claims", "invalid token claims")
	ErrRevokedToken       = apperrors.Unauthorized("token_revoked", "token has been revoked")
	ErrInvalidInvite      = apperrors.Validation("invalid_invite_token", "invite token is invalid or expired")
)
