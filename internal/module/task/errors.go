package task

import (
	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Task module errors.
var (
	ErrTaskNotFound       = apperrors.NotFound("task_not_found", "task not found")
	ErrTaskForbidden      = apperrors.Forbidden("task_forbidden", "not allowed to access this task")
	ErrNotTeamMember      = apperrors.Forbidden("not_a_member", "you are not a member of this team")
	ErrTitleRequired      = apperrors.Validation("title_required", "title is required")
	ErrAssigneeRequired   = apperrors.Validation("assignee_required", "assigned_to is required")
	ErrAssigneeNotMember  = apperrors.Validation("assignee_not_member", "assignee must be a member of the team")
	ErrInvalidStatus      = apperrors.Validation("invalid_status", "status must be pending or completed")
	ErrInvalidType        = apperrors.Validation("invalid_type", "type must be task or meeting")
	ErrInvalidRecurrence  = apperrors.Validation("invalid_recurrence", "recurrence must be none, daily, weekly or monthly")
	ErrInvalidDuration    = apperrors.Validation("invalid_duration", "duration must be a positive number of minutes")
	ErrInvalidSort        = apperrors.Validation("invalid_sort", "sortBy must be dueDate or createdAt")
	ErrRecurrenceEndOrder = apperrors.Validation("invalid_recurrence_end", "recurrence end date must not precede the due date")
)
