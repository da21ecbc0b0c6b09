package calendar

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/teamtask/server/internal/shared/errors"
	"github.com/teamtask/server/internal/shared/response"
	"github.com/teamtask/server/internal/utils/middleware"
)

// ConnectResponse carries the Google consent URL.
type ConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

// Handler handles calendar connection endpoints.
type Handler struct {
	connector *Connector
	clientURL string
	logger    *zap.Logger
}

// NewHandler creates a calendar handler. The callback redirects back to clientURL.
func NewHandler(connector *Connector, clientURL string, logger *zap.Logger) *Handler {
	return &Handler{connector: connector, clientURL: clientURL, logger: logger}
}

// RegisterRoutes registers the public OAuth callback.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/calendar/callback", h.Callback)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/calendar/connect", h.Connect)
}

// Connect returns the consent URL for the caller.
//
//	@Summary	Start Google Calendar connection
//	@Tags		Calendar
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	ConnectResponse
//	@Failure	400	{object}	response.ErrorResponse
//	@Router		/calendar/connect [get]
func (h *Handler) Connect(c *gin.Context) {
	authURL, err := h.connector.AuthURL(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ConnectResponse{AuthURL: authURL})
}

// Callback completes the OAuth flow and redirects to the client app.
//
//	@Summary	Google OAuth callback
//	@Tags		Calendar
//	@Param		code	query	string	true	"Authorization code"
//	@Param		state	query	string	true	"OAuth state"
//	@Success	302
//	@Router		/calendar/callback [get]
func (h *Handler) Callback(c *gin.Context) {
	q := url.Values{}
	if _, err := h.connector.Complete(c.Request.Context(), c.Query("state"), c.Query("code")); err != nil {
		h.logger.Warn("calendar callback failed", zap.Error(err))
		q.Set("calendar", "error")
		q.Set("reason", apperrors.Code(err))
	} else {
		q.Set("calendar", "connected")
	}
	c.Redirect(http.StatusFound, h.clientURL+"/?"+q.Encode())
}
