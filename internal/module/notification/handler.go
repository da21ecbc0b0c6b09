// Package notification streams live task notifications to signed-in users.
package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/events"
	"github.com/teamtask/server/internal/shared/response"
	"github.com/teamtask/server/internal/utils/middleware"
)

const defaultHeartbeat = 25 * time.Second

// Subscriber hands out per-user notification streams.
type Subscriber interface {
	Subscribe(userID uuid.UUID) (<-chan *events.Notification, func())
}

// Handler serves the notification stream.
type Handler struct {
	subscriber Subscriber
	heartbeat  time.Duration
	logger     *zap.Logger
}

// NewHandler creates a notification handler.
func NewHandler(subscriber Subscriber, logger *zap.Logger) *Handler {
	return &Handler{subscriber: subscriber, heartbeat: defaultHeartbeat, logger: logger}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/notifications/stream", h.Stream)
}

// Stream sends the caller's notifications as Server-Sent Events until the
// client disconnects or the server shuts down.
//
//	@Summary	Notification stream
//	@Tags		Notifications
//	@Produce	text/event-stream
//	@Security	BearerAuth
//	@Success	200	"SSE stream of notifications"
//	@Failure	401	{object}	response.ErrorResponse
//	@Router		/notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c)
		return
	}

	ch, cancel := h.subscriber.Subscribe(userID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprint(c.Writer, "event: ready\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Warn("failed to encode notification", zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Type, data)
			c.Writer.Flush()
		}
	}
}
