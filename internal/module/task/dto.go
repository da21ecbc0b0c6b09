package task

import (
	"time"

	"github.com/google/uuid"
)

// AssignAll is the assigned_to value that fans a task out to every resolved member.
const AssignAll = "all"

// CreateTaskRequest represents a team task creation.
type CreateTaskRequest struct {
	Title             string     `json:"title" binding:"required,max=200"`
	Description       string     `json:"description" binding:"max=5000"`
	AssignedTo        string     `json:"assigned_to" binding:"required"`
	DueDate           *time.Time `json:"due_date"`
	Type              Type       `json:"type" binding:"omitempty,tasktype"`
	Duration          *int       `json:"duration" binding:"omitempty,min=1,max=10080"`
	Recurrence        Recurrence `json:"recurrence" binding:"omitempty,recurrence"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date"`
}

// UpdateTaskRequest is a partial update. Absent fields keep their value.
type UpdateTaskRequest struct {
	Title             *string     `json:"title" binding:"omitempty,max=200"`
	Description       *string     `json:"description" binding:"omitempty,max=5000"`
	Status            *Status     `json:"status" binding:"omitempty,taskstatus"`
	AssignedTo        *uuid.UUID  `json:"assigned_to"`
	DueDate           *time.Time  `json:"due_date"`
	Type              *Type       `json:"type" binding:"omitempty,tasktype"`
	Duration          *int        `json:"duration" binding:"omitempty,min=1,max=10080"`
	Recurrence        *Recurrence `json:"recurrence" binding:"omitempty,recurrence"`
	RecurrenceEndDate *time.Time  `json:"recurrence_end_date"`
}

// FilterQuery holds the query string of the filtered listing.
type FilterQuery struct {
	Status string `form:"status" binding:"omitempty,taskstatus"`
	SortBy string `form:"sortBy" binding:"omitempty,oneof=dueDate createdAt"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	AssignedTo        uuid.UUID  `json:"assigned_to"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	TeamID            uuid.UUID  `json:"team_id"`
	Status            Status     `json:"status"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	Type              Type       `json:"type"`
	Duration          *int       `json:"duration,omitempty"`
	Recurrence        Recurrence `json:"recurrence"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	GoogleEventID     *string    `json:"google_event_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateTasksResponse lists the tasks one creation request produced.
type CreateTasksResponse struct {
	Tasks []*TaskResponse `json:"tasks"`
	Count int             `json:"count"`
}

// SyncResponse reports a calendar reconciliation.
type SyncResponse struct {
	AddedCount int `json:"added_count"`
}

// ToResponse converts a Task to its public view.
func (t *Task) ToResponse() *TaskResponse {
	return &TaskResponse{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		AssignedTo:        t.AssignedTo,
		CreatedBy:         t.CreatedBy,
		TeamID:            t.TeamID,
		Status:            t.Status,
		DueDate:           t.DueDate,
		Type:              t.Type,
		Duration:          t.Duration,
		Recurrence:        t.Recurrence,
		RecurrenceEndDate: t.RecurrenceEndDate,
		GoogleEventID:     t.GoogleEventID,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// toResponses converts tasks to their public views.
func toResponses(tasks []*Task) []*TaskResponse {
	out := make([]*TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = t.ToResponse()
	}
	return out
}
