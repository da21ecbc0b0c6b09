package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// RefreshTokenHeader carries the refresh token for non-browser clients.
	RefreshTokenHeader = "X-Refresh-Token"
	// AccessTokenHeader returns a reissued access token.
	AccessTokenHeader = "X-Access-Token"
	// AccessTokenCookie is the cookie holding the access token.
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie is the cookie holding the refresh token.
	RefreshTokenCookie = "refresh_token"
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// SessionVerifier validates session credentials.
// VerifyAccess must return an error matching jwt.ErrTokenExpired for expired tokens.
type SessionVerifier interface {
	VerifyAccess(token string) (*Identity, error)
	RefreshAccess(ctx context.Context, refreshToken string) (string, *Identity, error)
}

// CookieOptions controls the access cookie written after a transparent refresh.
type CookieOptions struct {
	MaxAge int
	Secure bool
}

// Auth returns a middleware that authenticates the request.
// An expired access token is refreshed at most once per request when a valid
// refresh token accompanies it; the new token is returned in X-Access-Token
// and the access cookie.
func Auth(verifier SessionVerifier, cookie CookieOptions, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		identity, err := authenticate(c, verifier, cookie, log)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(EmailKey, identity.Email)
		c.Next()
	}
}

func authenticate(c *gin.Context, verifier SessionVerifier, cookie CookieOptions, log *zap.Logger) (*Identity, error) {
	token := extractAccessToken(c)
	if token != "" {
		identity, err := verifier.VerifyAccess(token)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, err
		}
	}

	refresh := extractRefreshToken(c)
	if refresh == "" {
		return nil, errMissingCredentials
	}

	access, identity, err := verifier.RefreshAccess(c.Request.Context(), refresh)
	if err != nil {
		log.Debug("session refresh rejected", zap.Error(err))
		return nil, err
	}

	c.Header(AccessTokenHeader, access)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, access, cookie.MaxAge, "/", "", cookie.Secure, true)
	return identity, nil
}

var errMissingCredentials = errors.New("missing credentials")

func extractAccessToken(c *gin.Context) string {
	if token := extractBearerToken(c); token != "" {
		return token
	}
	if token, err := c.Cookie(AccessTokenCookie); err == nil {
		return token
	}
	return ""
}

func extractRefreshToken(c *gin.Context) string {
	if token := c.GetHeader(RefreshTokenHeader); token != "" {
		return token
	}
	if token, err := c.Cookie(RefreshTokenCookie); err == nil {
		return token
	}
	return ""
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimPrefix(authHeader, BearerPrefix)
	}
	return ""
}

// GetUserID returns the user ID from context.
// Returns uuid.Nil if not found.
func GetUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(UserIDKey); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

// GetEmail returns the email from context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// IsAuthenticated returns true if the user is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != uuid.Nil
}
