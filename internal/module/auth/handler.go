package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/response"
	"github.com/teamtask/server/internal/utils/middleware"
)

const (
	credentialLimit  = 10
	credentialWindow = time.Minute
)

// Handler handles HTTP requests for sessions.
type Handler struct {
	service       *Service
	limiter       middleware.Limiter
	secureCookies bool
	logger        *zap.Logger
}

// NewHandler creates a new auth handler.
// A nil limiter disables rate limiting on credential endpoints.
func NewHandler(service *Service, limiter middleware.Limiter, secureCookies bool, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		limiter:       limiter,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// RegisterRoutes registers public auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	limit := middleware.RateLimitByEndpoint(h.limiter, credentialLimit, credentialWindow, h.logger)

	auth := r.Group("/auth")
	{
		auth.POST("/register", limit, h.Register)
		auth.POST("/login", limit, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
	}
}

// Register creates an account.
//
//	@Summary		Register
//	@Description	Creates an account. An invite token from an invite email resolves pending invites.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	response.ErrorResponse
//	@Failure		409		{object}	response.ErrorResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	session, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, session.Tokens)
	c.JSON(http.StatusCreated, session.ToResponse())
}

// Login opens a session.
//
//	@Summary		Login
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		401		{object}	response.ErrorResponse
//	@Failure		429		{object}	response.ErrorResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	session, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, session.Tokens)
	c.JSON(http.StatusOK, session.ToResponse())
}

// Refresh issues a new access token.
//
//	@Summary		Refresh access token
//	@Description	Reads the refresh token from the body, the X-Refresh-Token header or the refresh_token cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	TokenPair
//	@Failure		401		{object}	response.ErrorResponse
//	@Router			/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	token := h.refreshToken(c)
	if token == "" {
		response.Unauthorized(c)
		return
	}

	tokens, _, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, h.service.AccessCookieMaxAge(), "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, tokens)
}

// Logout revokes the refresh token and clears session cookies.
//
//	@Summary	Logout
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if token := h.refreshToken(c); token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			response.HandleError(c, h.logger, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) refreshToken(c *gin.Context) string {
	var req RefreshRequest
	if c.Request.ContentLength > 0 && c.ShouldBindJSON(&req) == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if token := c.GetHeader(middleware.RefreshTokenHeader); token != "" {
		return token
	}
	if token, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		return token
	}
	return ""
}

func (h *Handler) setSessionCookies(c *gin.Context, tokens *TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, int(tokens.ExpiresIn), "/", "", h.secureCookies, true)
	refreshMaxAge := int(time.Until(tokens.RefreshExpiresAt).Seconds())
	c.SetCookie(middleware.RefreshTokenCookie, tokens.RefreshToken, refreshMaxAge, "/", "", h.secureCookies, true)
}
