package task

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/response"
	"github.com/teamtask/server/internal/utils/middleware"
)

// Handler handles HTTP requests for tasks.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new task handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/teams/:id/tasks", h.CreateTaskForTeam)
	r.GET("/teams/:id/tasks", h.ListTeamTasks)

	tasks := r.Group("/tasks")
	{
		tasks.GET("", h.ListMyTasks)
		tasks.GET("/filter", h.ListFilteredTasks)
		tasks.POST("/sync-calendar", h.SyncOpenTasksToCalendar)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}
}

// CreateTaskForTeam creates a task for one member or, with assigned_to "all", for every member.
//
//	@Summary	Create team task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Team ID"
//	@Param		request	body		CreateTaskRequest	true	"Task"
//	@Success	201		{object}	CreateTasksResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	403		{object}	response.ErrorResponse
//	@Router		/teams/{id}/tasks [post]
func (h *Handler) CreateTaskForTeam(c *gin.Context) {
	teamID, ok := parseID(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	tasks, err := h.service.CreateTaskForTeam(c.Request.Context(), middleware.GetUserID(c), teamID, &req)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, CreateTasksResponse{Tasks: toResponses(tasks), Count: len(tasks)})
}

// ListTeamTasks lists a team's tasks visible to the caller.
//
//	@Summary	List team tasks
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Team ID"
//	@Success	200	{array}		TaskResponse
//	@Failure	403	{object}	response.ErrorResponse
//	@Failure	404	{object}	response.ErrorResponse
//	@Router		/teams/{id}/tasks [get]
func (h *Handler) ListTeamTasks(c *gin.Context) {
	teamID, ok := parseID(c)
	if !ok {
		return
	}

	tasks, err := h.service.ListTeamTasks(c.Request.Context(), middleware.GetUserID(c), teamID)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(tasks))
}

// ListMyTasks lists tasks the caller created or is assigned.
//
//	@Summary	List my tasks
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	TaskResponse
//	@Router		/tasks [get]
func (h *Handler) ListMyTasks(c *gin.Context) {
	tasks, err := h.service.ListMyTasks(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(tasks))
}

// ListFilteredTasks lists the caller's tasks by status and sort order.
//
//	@Summary	Filter my tasks
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status	query		string	false	"pending or completed"
//	@Param		sortBy	query		string	false	"dueDate or createdAt"
//	@Success	200		{array}		TaskResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Router		/tasks/filter [get]
func (h *Handler) ListFilteredTasks(c *gin.Context) {
	var q FilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err)
		return
	}

	tasks, err := h.service.ListFilteredTasks(c.Request.Context(), middleware.GetUserID(c), q.Status, q.SortBy)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(tasks))
}

// GetTask returns one task.
//
//	@Summary	Get task
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Task ID"
//	@Success	200	{object}	TaskResponse
//	@Failure	403	{object}	response.ErrorResponse
//	@Failure	404	{object}	response.ErrorResponse
//	@Router		/tasks/{id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	taskID, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.service.GetTask(c.Request.Context(), middleware.GetUserID(c), taskID)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t.ToResponse())
}

// UpdateTask applies a partial update.
//
//	@Summary	Update task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Task ID"
//	@Param		request	body		UpdateTaskRequest	true	"Fields to change"
//	@Success	200		{object}	TaskResponse
//	@Failure	400		{object}	response.ErrorResponse
//	@Failure	403		{object}	response.ErrorResponse
//	@Failure	404		{object}	response.ErrorResponse
//	@Router		/tasks/{id} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	t, err := h.service.UpdateTask(c.Request.Context(), middleware.GetUserID(c), taskID, &req)
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t.ToResponse())
}

// DeleteTask deletes a task.
//
//	@Summary	Delete task
//	@Tags		Tasks
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Task ID"
//	@Success	204
//	@Failure	403	{object}	response.ErrorResponse
//	@Failure	404	{object}	response.ErrorResponse
//	@Router		/tasks/{id} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	taskID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), middleware.GetUserID(c), taskID); err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncOpenTasksToCalendar mirrors the caller's open tasks into Google Calendar.
//
//	@Summary	Sync open tasks to calendar
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	SyncResponse
//	@Failure	400	{object}	response.ErrorResponse
//	@Router		/tasks/sync-calendar [post]
func (h *Handler) SyncOpenTasksToCalendar(c *gin.Context) {
	added, err := h.service.SyncOpenTasksToCalendar(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SyncResponse{AddedCount: added})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_id")
		return uuid.Nil, false
	}
	return id, true
}
