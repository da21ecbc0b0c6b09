// Package task is the task store: team tasks with assignment, scheduling,
// recurrence and calendar mirroring.
package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamtask/server/internal/module/calendar"
	"github.com/teamtask/server/internal/module/policy"
)

// Status represents the status of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Type distinguishes plain tasks from meetings.
type Type string

const (
	TypeTask    Type = "task"
	TypeMeeting Type = "meeting"
)

// IsValid checks if the type is known.
func (t Type) IsValid() bool {
	return t == TypeTask || t == TypeMeeting
}

// Recurrence is how often a task repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// IsValid checks if the recurrence is known.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Task is one unit of work assigned to one team member.
type Task struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title             string     `gorm:"type:varchar(200);not null"`
	Description       string     `gorm:"type:text"`
	AssignedTo        uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy         uuid.UUID  `gorm:"type:uuid;not null;index"`
	TeamID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status            Status     `gorm:"type:varchar(16);not null;default:pending;index"`
	DueDate           *time.Time `gorm:"index"`
	Type              Type       `gorm:"type:varchar(16);not null;default:task"`
	Duration          *int       `gorm:"column:duration"`
	Recurrence        Recurrence `gorm:"type:varchar(16);not null;default:none"`
	RecurrenceEndDate *time.Time
	GoogleEventID     *string `gorm:"column:google_event_id;type:varchar(255)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for Task.
func (Task) TableName() string {
	return "tasks"
}

// Ref returns the fields authorization rules look at.
func (t *Task) Ref() policy.TaskRef {
	return policy.TaskRef{CreatedBy: t.CreatedBy, AssignedTo: t.AssignedTo}
}

// IsMirrored reports whether a calendar event exists for the task.
func (t *Task) IsMirrored() bool {
	return t.GoogleEventID != nil && *t.GoogleEventID != ""
}

// Schedule returns the calendar view of the task, or nil without a due date.
func (t *Task) Schedule() *calendar.Schedule {
	if t.DueDate == nil {
		return nil
	}
	return &calendar.Schedule{
		Title:             t.Title,
		Description:       t.Description,
		DueDate:           *t.DueDate,
		DurationMinutes:   t.Duration,
		Recurrence:        string(t.Recurrence),
		RecurrenceEndDate: t.RecurrenceEndDate,
	}
}
