package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// InviteClaims are the claims of an invite token.
type InviteClaims struct {
	jwt.RegisteredClaims
	TeamID uuid.UUID `json:"teamId"`
}

// InviteSigner signs and parses stateless invite tokens.
type InviteSigner struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewInviteSigner creates an invite signer.
func NewInviteSigner(secret string, expiry time.Duration) *InviteSigner {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &InviteSigner{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Sign returns an invite token for teamID.
func (s *InviteSigner) Sign(teamID uuid.UUID) (string, error) {
	claims := &InviteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(s.expiry)),
		},
		TeamID: teamID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign invite token: %w", err)
	}
	return token, nil
}

// Parse validates an invite token and returns its team id.
func (s *InviteSigner) Parse(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InviteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidInvite, err)
	}

	claims, ok := token.Claims.(*InviteClaims)
	if !ok || !token.Valid || claims.TeamID == uuid.Nil {
		return uuid.Nil, ErrInvalidInvite
	}
	return claims.TeamID, nil
}
