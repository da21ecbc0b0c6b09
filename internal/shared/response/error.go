package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, status int, code string) {
	c.JSON(status, ErrorResponse{Error: code})
}

// BadRequest sends a 400 response carrying a binding or parsing failure.
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "unauthorized")
}

// HandleError renders err using the application error taxonomy.
// Unknown errors are logged and reported as 500 without leaking details.
func HandleError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
		c.JSON(appErr.StatusCode, ErrorResponse{Error: appErr.Code, Message: appErr.Message})
		return
	}

	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	Error(c, status, apperrors.Code(err))
}
