package team

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/response"
	"github.com/teamtask/server/internal/utils/middleware"
)

// Handler handles HTTP requests for teams.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new team handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	teams := r.Group("/teams")
	{
		teams.POST("", h.CreateTeam)
		teams.GET("", h.ListTeams)
		teams.GET("/:id", h.GetTeam)
		teams.DELETE("/:id", h.DeleteTeam)
		teams.POST("/:id/invites", h.SendInvite)
		teams.POST("/:id/promote", h.Promote)
		teams.DELETE("/:id/members", h.RemoveMember)
	}
}

// CreateTeam creates a team with the caller as admin.
//
//	@Summary	Create team
//	@Tags		Teams
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		CreateTeamRequest	true	"Team"
//	@Success	201		{object}	TeamResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Router		/teams [post]
func (h *Handler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	team, err := h.service.CreateTeam(c.Request.Context(), middleware.GetUserID(c), req.Name)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, team.ToResponse())
}

// ListTeams lists the caller's teams.
//
//	@Summary	List my teams
//	@Tags		Teams
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	TeamResponse
//	@Router		/teams [get]
func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.service.ListTeams(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	out := make([]*TeamResponse, len(teams))
	for i, t := range teams {
		out[i] = t.ToResponse()
	}
	c.JSON(http.StatusOK, out)
}

// GetTeam returns a team with its members.
//
//	@Summary	Get team
//	@Tags		Teams
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Team ID"
//	@Success	200	{object}	TeamResponse
//	@Failure	404	{object}	response.ErrorResponse
//	@Router		/teams/{id} [get]
func (h *Handler) GetTeam(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetTeam(c.Request.Context(), teamID, middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail.ToResponse())
}

// DeleteTeam deletes a team.
//
//	@Summary	Delete team
//	@Tags		Teams
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Team ID"
//	@Success	204
//	@Failure	403	{object}	response.ErrorResponse
//	@Router		/teams/{id} [delete]
func (h *Handler) DeleteTeam(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTeam(c.Request.Context(), teamID, middleware.GetUserID(c)); err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SendInvite invites an email address to the team.
//
//	@Summary	Invite to team
//	@Tags		Teams
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string			true	"Team ID"
//	@Param		request	body		EmailRequest	true	"Invitee"
//	@Success	200		{object}	InviteResult
//	@Failure	403		{object}	response.ErrorResponse
//	@Router		/teams/{id}/invites [post]
func (h *Handler) SendInvite(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.service.SendInvite(c.Request.Context(), middleware.GetUserID(c), teamID, req.Email)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Promote makes a member an admin.
//
//	@Summary	Promote member
//	@Tags		Teams
//	@Accept		json
//	@Security	BearerAuth
//	@Param		id		path	string			true	"Team ID"
//	@Param		request	body	EmailRequest	true	"Member"
//	@Success	204
//	@Failure	403	{object}	response.ErrorResponse
//	@Failure	404	{object}	response.ErrorResponse
//	@Router		/teams/{id}/promote [post]
func (h *Handler) Promote(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.service.Promote(c.Request.Context(), teamID, middleware.GetUserID(c), req.Email); err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember removes a member or a pending invite.
//
//	@Summary	Remove member
//	@Tags		Teams
//	@Security	BearerAuth
//	@Param		id		path	string	true	"Team ID"
//	@Param		email	query	string	true	"Member email"
//	@Success	204
//	@Failure	403	{object}	response.ErrorResponse
//	@Router		/teams/{id}/members [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	teamID, ok := h.teamID(c)
	if !ok {
		return
	}

	email := c.Query("email")
	if email == "" {
		response.Error(c, http.StatusBadRequest, "email_required")
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), teamID, middleware.GetUserID(c), email); err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) teamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_team_id")
		return uuid.Nil, false
	}
	return id, true
}
