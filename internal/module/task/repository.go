package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SortField orders task listings.
type SortField string

const (
	// SortCreatedAt lists newest first.
	SortCreatedAt SortField = "createdAt"
	// SortDueDate lists the earliest due date first; undated tasks go last.
	SortDueDate SortField = "dueDate"
)

// Filter represents task filter options. Nil fields do not filter.
type Filter struct {
	// VisibleTo matches tasks the user created or is assigned.
	VisibleTo  *uuid.UUID
	AssignedTo *uuid.UUID
	TeamID     *uuid.UUID
	Status     *Status
	SortBy     SortField
}

// Repository defines the interface for task data access.
type Repository interface {
	Create(ctx context.Context, tasks []*Task) error
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter *Filter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	SetGoogleEventID(ctx context.Context, id uuid.UUID, eventID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListUnmirrored lists the assignee's pending, dated tasks without a calendar event.
	ListUnmirrored(ctx context.Context, assignee uuid.UUID) ([]*Task, error)
	// ListDueBefore lists pending tasks due at or before until.
	ListDueBefore(ctx context.Context, until time.Time) ([]*Task, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates or updates the tasks table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Task{})
}

// Create inserts tasks in one transaction.
func (r *repository) Create(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&tasks).Error; err != nil {
		return fmt.Errorf("create tasks: %w", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// List lists tasks with optional filters.
func (r *repository) List(ctx context.Context, filter *Filter) ([]*Task, error) {
	var tasks []*Task
	query := r.db.WithContext(ctx)

	if filter == nil {
		filter = &Filter{}
	}
	if filter.VisibleTo != nil {
		query = query.Where("created_by = ? OR assigned_to = ?", *filter.VisibleTo, *filter.VisibleTo)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	switch filter.SortBy {
	case SortDueDate:
		query = query.Order("due_date ASC NULLS LAST").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// updatableColumns are the columns Update writes. The calendar event id is
// owned by SetGoogleEventID and creation fields never change.
var updatableColumns = []string{
	"title",
	"description",
	"assigned_to",
	"status",
	"due_date",
	"type",
	"duration",
	"recurrence",
	"recurrence_end_date",
	"updated_at",
}

// Update writes the editable fields of an existing task.
func (r *repository) Update(ctx context.Context, task *Task) error {
	result := updateStatement(r.db.WithContext(ctx), task)
	if result.Error != nil {
		return fmt.Errorf("update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func updateStatement(db *gorm.DB, task *Task) *gorm.DB {
	return db.Model(&Task{ID: task.ID}).Select(updatableColumns).Updates(task)
}

// SetGoogleEventID records the calendar event mirroring a task.
func (r *repository) SetGoogleEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		Update("google_event_id", eventID)
	if result.Error != nil {
		return fmt.Errorf("set google event id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete deletes a task.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListUnmirrored lists tasks eligible for calendar reconciliation.
func (r *repository) ListUnmirrored(ctx context.Context, assignee uuid.UUID) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status = ?", assignee, StatusPending).
		Where("google_event_id IS NULL OR google_event_id = ''").
		Where("due_date IS NOT NULL").
		Order("due_date ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list unmirrored tasks: %w", err)
	}
	return tasks, nil
}

// ListDueBefore lists pending tasks due at or before until.
func (r *repository) ListDueBefore(ctx context.Context, until time.Time) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date <= ?", StatusPending, until).
		Order("due_date ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return tasks, nil
}
