package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/infra/jobs"
	"github.com/teamtask/server/internal/module/calendar"
	"github.com/teamtask/server/internal/module/policy"
	"github.com/teamtask/server/internal/module/team"
	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/events"
	"github.com/teamtask/server/internal/utils/metrics"
)

// TeamDirectory is the team directory as seen by the task store.
type TeamDirectory interface {
	RoleOf(ctx context.Context, teamID, userID uuid.UUID) (policy.Role, error)
	Members(ctx context.Context, teamID uuid.UUID) ([]team.Membership, error)
}

// CredentialLookup reports whether a user has connected a calendar.
type CredentialLookup interface {
	CalendarCredential(ctx context.Context, userID uuid.UUID) (*user.CalendarCredential, error)
}

// JobSubmitter schedules background work.
type JobSubmitter interface {
	Submit(job jobs.Job) error
}

// Service provides task store operations.
type Service struct {
	repo      Repository
	teams     TeamDirectory
	calendar  calendar.Client
	creds     CredentialLookup
	jobs      JobSubmitter
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a new task service.
func NewService(
	repo Repository,
	teams TeamDirectory,
	cal calendar.Client,
	creds CredentialLookup,
	submitter JobSubmitter,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		teams:     teams,
		calendar:  cal,
		creds:     creds,
		jobs:      submitter,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// ========== Creation ==========

// CreateTaskForTeam creates one task per assignee. With assigned_to "all" the
// task fans out to every resolved member, each user at most once.
func (s *Service) CreateTaskForTeam(ctx context.Context, actorID, teamID uuid.UUID, req *CreateTaskRequest) ([]*Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		return nil, ErrAssigneeRequired
	}
	if err := validateSchedule(req.Type, req.Recurrence, req.Duration, req.DueDate, req.RecurrenceEndDate); err != nil {
		return nil, err
	}

	role, err := s.teams.RoleOf(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanCreateTeamTask(policy.Actor{UserID: actorID, Role: role}) {
		return nil, ErrNotTeamMember
	}

	assignees, err := s.assignees(ctx, teamID, strings.TrimSpace(req.AssignedTo))
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, len(assignees))
	for i, assignee := range assignees {
		tasks[i] = &Task{
			ID:                uuid.New(),
			Title:             title,
			Description:       req.Description,
			AssignedTo:        assignee,
			CreatedBy:         actorID,
			TeamID:            teamID,
			Status:            StatusPending,
			DueDate:           req.DueDate,
			Type:              orDefault(req.Type, TypeTask),
			Duration:          req.Duration,
			Recurrence:        orDefault(req.Recurrence, RecurrenceNone),
			RecurrenceEndDate: req.RecurrenceEndDate,
		}
	}

	if err := s.repo.Create(ctx, tasks); err != nil {
		return nil, err
	}

	mode := "single"
	if req.AssignedTo == AssignAll {
		mode = "all"
	}
	s.metrics.RecordTasksCreated(mode, len(tasks))
	s.logger.Info("tasks created",
		zap.String("team_id", teamID.String()),
		zap.String("created_by", actorID.String()),
		zap.String("mode", mode),
		zap.Int("count", len(tasks)),
	)

	// Each task is mirrored and announced on its own; one failure never affects the others.
	for _, t := range tasks {
		s.mirrorCreate(t)
		s.publish(ctx, events.TaskCreatedType, t, t.AssignedTo)
	}

	return tasks, nil
}

// assignees resolves assigned_to into user ids of resolved team members.
func (s *Service) assignees(ctx context.Context, teamID uuid.UUID, assignedTo string) ([]uuid.UUID, error) {
	members, err := s.teams.Members(ctx, teamID)
	if err != nil {
		return nil, err
	}
	resolved := team.ResolvedMembers(members)

	if assignedTo == AssignAll {
		ids := make([]uuid.UUID, len(resolved))
		for i, m := range resolved {
			ids[i] = m.UserID
		}
		return ids, nil
	}

	id, err := uuid.Parse(assignedTo)
	if err != nil {
		return nil, ErrAssigneeNotMember
	}
	if !isResolvedMember(resolved, id) {
		return nil, ErrAssigneeNotMember
	}
	return []uuid.UUID{id}, nil
}

func isResolvedMember(resolved []team.Resolved, userID uuid.UUID) bool {
	for _, m := range resolved {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ========== Queries ==========

// GetTask returns a task the actor may read.
func (s *Service) GetTask(ctx context.Context, actorID, taskID uuid.UUID) (*Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	actor, err := s.actorFor(ctx, t, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadTask(actor, t.Ref()) {
		return nil, ErrTaskForbidden
	}
	return t, nil
}

// ListMyTasks lists tasks the actor created or is assigned, newest first.
func (s *Service) ListMyTasks(ctx context.Context, actorID uuid.UUID) ([]*Task, error) {
	return s.repo.List(ctx, &Filter{VisibleTo: &actorID, SortBy: SortCreatedAt})
}

// ListFilteredTasks lists the actor's tasks, optionally by status, sorted by
// due date (ascending) or creation time (descending, the default).
func (s *Service) ListFilteredTasks(ctx context.Context, actorID uuid.UUID, status string, sortBy string) ([]*Task, error) {
	filter := &Filter{VisibleTo: &actorID, SortBy: SortCreatedAt}

	if status != "" {
		st := Status(status)
		if !st.IsValid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = &st
	}

	switch SortField(sortBy) {
	case "", SortCreatedAt:
	case SortDueDate:
		filter.SortBy = SortDueDate
	default:
		return nil, ErrInvalidSort
	}

	return s.repo.List(ctx, filter)
}

// ListTeamTasks lists a team's tasks: all of them for admins, the actor's
// own assignments for members.
func (s *Service) ListTeamTasks(ctx context.Context, actorID, teamID uuid.UUID) ([]*Task, error) {
	role, err := s.teams.RoleOf(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}

	filter := &Filter{TeamID: &teamID, SortBy: SortCreatedAt}
	switch policy.TeamTaskScope(role) {
	case policy.ScopeAll:
	case policy.ScopeAssigned:
		filter.AssignedTo = &actorID
	default:
		return nil, ErrNotTeamMember
	}
	return s.repo.List(ctx, filter)
}

// ========== Mutation ==========

// UpdateTask applies a partial update. Creator, assignee and team admins may
// update; a new assignee must be a resolved member of the task's team.
func (s *Service) UpdateTask(ctx context.Context, actorID, taskID uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	actor, err := s.actorFor(ctx, t, actorID)
	if err != nil {
		return nil, err
	}
	if !policy.CanWriteTask(actor, t.Ref()) {
		return nil, ErrTaskForbidden
	}

	previousAssignee := t.AssignedTo
	if err := s.apply(ctx, t, req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	if t.IsMirrored() {
		s.mirrorUpdate(t)
	}

	recipients := []uuid.UUID{t.AssignedTo}
	if previousAssignee != t.AssignedTo {
		recipients = append(recipients, previousAssignee)
	}
	s.publish(ctx, events.TaskUpdatedType, t, recipients...)

	return t, nil
}

// apply copies the set fields of req onto t.
func (s *Service) apply(ctx context.Context, t *Task, req *UpdateTaskRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return ErrTitleRequired
		}
		t.Title = title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return ErrInvalidStatus
		}
		t.Status = *req.Status
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Type != nil {
		if !req.Type.IsValid() {
			return ErrInvalidType
		}
		t.Type = *req.Type
	}
	if req.Duration != nil {
		t.Duration = req.Duration
	}
	if req.Recurrence != nil {
		if !req.Recurrence.IsValid() {
			return ErrInvalidRecurrence
		}
		t.Recurrence = *req.Recurrence
	}
	if req.RecurrenceEndDate != nil {
		t.RecurrenceEndDate = req.RecurrenceEndDate
	}
	if err := validateSchedule(t.Type, t.Recurrence, t.Duration, t.DueDate, t.RecurrenceEndDate); err != nil {
		return err
	}

	if req.AssignedTo != nil && *req.AssignedTo != t.AssignedTo {
		members, err := s.teams.Members(ctx, t.TeamID)
		if err != nil {
			return err
		}
		if !isResolvedMember(team.ResolvedMembers(members), *req.AssignedTo) {
			return ErrAssigneeNotMember
		}
		t.AssignedTo = *req.AssignedTo
	}
	return nil
}

// DeleteTask deletes a task, then retires its calendar mirror in the background.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	actor, err := s.actorFor(ctx, t, actorID)
	if err != nil {
		return err
	}
	if !policy.CanWriteTask(actor, t.Ref()) {
		return ErrTaskForbidden
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}

	if t.IsMirrored() {
		s.mirrorDelete(t)
	}
	s.publish(ctx, events.TaskDeletedType, t, t.AssignedTo)
	return nil
}

// actorFor returns the actor with their role in the task's team. A deleted
// team leaves the actor without a role.
func (s *Service) actorFor(ctx context.Context, t *Task, actorID uuid.UUID) (policy.Actor, error) {
	role, err := s.teams.RoleOf(ctx, t.TeamID, actorID)
	if err != nil && !errors.Is(err, team.ErrTeamNotFound) {
		return policy.Actor{}, err
	}
	return policy.Actor{UserID: actorID, Role: role}, nil
}

// ========== Calendar ==========

// SyncOpenTasksToCalendar mirrors the actor's pending, dated, unmirrored
// tasks one by one and returns how many succeeded.
func (s *Service) SyncOpenTasksToCalendar(ctx context.Context, actorID uuid.UUID) (int, error) {
	cred, err := s.creds.CalendarCredential(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if !cred.Connected() {
		return 0, calendar.ErrNoCredential
	}

	tasks, err := s.repo.ListUnmirrored(ctx, actorID)
	if err != nil {
		return 0, err
	}

	added, failed := 0, 0
	for _, t := range tasks {
		schedule := t.Schedule()
		if schedule == nil {
			continue
		}
		eventID, err := s.calendar.CreateEvent(ctx, actorID, schedule)
		if err != nil {
			failed++
			s.logger.Warn("calendar sync failed for task",
				zap.String("task_id", t.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.repo.SetGoogleEventID(ctx, t.ID, eventID); err != nil {
			failed++
			s.logger.Warn("failed to record calendar event",
				zap.String("task_id", t.ID.String()),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
			continue
		}
		added++
	}

	s.logger.Info("calendar sync finished",
		zap.String("user_id", actorID.String()),
		zap.Int("added", added),
		zap.Int("failed", failed),
	)
	return added, nil
}

// mirrorCreate creates the assignee's event and records its id once the call returns.
func (s *Service) mirrorCreate(t *Task) {
	schedule := t.Schedule()
	if schedule == nil {
		return
	}
	taskID, owner := t.ID, t.AssignedTo

	s.submit("calendar.create", taskID, func(ctx context.Context) error {
		eventID, err := s.calendar.CreateEvent(ctx, owner, schedule)
		if err != nil {
			return skipUnconnected(err)
		}
		return s.repo.SetGoogleEventID(ctx, taskID, eventID)
	})
}

// mirrorUpdate rewrites the event in the current assignee's calendar.
func (s *Service) mirrorUpdate(t *Task) {
	schedule := t.Schedule()
	if schedule == nil {
		return
	}
	taskID, owner, eventID := t.ID, t.AssignedTo, *t.GoogleEventID

	s.submit("calendar.update", taskID, func(ctx context.Context) error {
		return skipUnconnected(s.calendar.UpdateEvent(ctx, owner, eventID, schedule))
	})
}

// mirrorDelete removes the event from the assignee's calendar.
func (s *Service) mirrorDelete(t *Task) {
	taskID, owner, eventID := t.ID, t.AssignedTo, *t.GoogleEventID

	s.submit("calendar.delete", taskID, func(ctx context.Context) error {
		return skipUnconnected(s.calendar.DeleteEvent(ctx, owner, eventID))
	})
}

func (s *Service) submit(kind string, taskID uuid.UUID, run func(ctx context.Context) error) {
	if s.calendar == nil || s.jobs == nil {
		return
	}
	job := jobs.Job{Type: kind, Key: taskID.String(), Run: run}
	if err := s.jobs.Submit(job); err != nil {
		s.logger.Warn("calendar job not scheduled",
			zap.String("type", kind),
			zap.String("task_id", taskID.String()),
			zap.Error(err),
		)
	}
}

// skipUnconnected treats a missing calendar credential as nothing to do.
func skipUnconnected(err error) error {
	if errors.Is(err, calendar.ErrNoCredential) {
		return nil
	}
	return err
}

// ========== Notifications ==========

func (s *Service) publish(ctx context.Context, kind string, t *Task, recipients ...uuid.UUID) {
	n := events.NewNotification(kind, recipients...)
	n.TaskID = t.ID
	n.TeamID = t.TeamID
	n.Title = t.Title
	n.DueDate = t.DueDate

	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("type", kind),
			zap.String("task_id", t.ID.String()),
			zap.Error(err),
		)
	}
}

// ========== Helpers ==========

func validateSchedule(typ Type, rec Recurrence, duration *int, due, recurrenceEnd *time.Time) error {
	if typ != "" && !typ.IsValid() {
		return ErrInvalidType
	}
	if rec != "" && !rec.IsValid() {
		return ErrInvalidRecurrence
	}
	if duration != nil && *duration <= 0 {
		return ErrInvalidDuration
	}
	if due != nil && recurrenceEnd != nil && recurrenceEnd.Before(*due) {
		return ErrRecurrenceEndOrder
	}
	return nil
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}
