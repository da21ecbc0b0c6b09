package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/shared/config"
	"github.com/teamtask/server/internal/shared/events"
)

// DueLister finds tasks due soon.
type DueLister interface {
	ListDueBefore(ctx context.Context, until time.Time) ([]*Task, error)
}

// Reminder publishes a task.due notification to the assignee of every
// pending task due within the horizon, once a day.
type Reminder struct {
	tasks     DueLister
	publisher events.Publisher
	horizon   time.Duration
	spec      string
	enabled   bool
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReminder creates a reminder that fires daily at cfg.Hour:cfg.Minute in timeZone.
func NewReminder(tasks DueLister, publisher events.Publisher, cfg *config.ReminderConfig, timeZone string, logger *zap.Logger) (*Reminder, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("reminder time zone: %w", err)
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Reminder{
		tasks:     tasks,
		publisher: publisher,
		horizon:   horizon,
		spec:      fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour),
		enabled:   cfg.Enabled,
		loc:       loc,
		now:       time.Now,
		logger:    logger.Named("reminder"),
	}, nil
}

// Start schedules the daily run. It is a no-op when reminders are disabled.
func (r *Reminder) Start(ctx context.Context) error {
	if !r.enabled {
		r.logger.Info("due reminders disabled")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(r.loc))
	_, err := c.AddFunc(r.spec, func() {
		if _, err := r.RunOnce(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error("due reminder run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	c.Start()
	r.cron = c

	r.logger.Info("due reminders scheduled",
		zap.String("schedule", r.spec),
		zap.String("time_zone", r.loc.String()),
		zap.Duration("horizon", r.horizon),
	)
	return nil
}

// Stop stops scheduling and waits for a running reminder, up to ctx's deadline.
func (r *Reminder) Stop(ctx context.Context) {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn("reminder stop deadline reached")
	}
}

// RunOnce publishes reminders for tasks due within the horizon and returns how many were sent.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	until := r.now().Add(r.horizon)
	tasks, err := r.tasks.ListDueBefore(ctx, until)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tasks {
		n := events.NewNotification(events.TaskDueType, t.AssignedTo)
		n.TaskID = t.ID
		n.TeamID = t.TeamID
		n.Title = t.Title
		n.DueDate = t.DueDate

		if err := r.publisher.Publish(ctx, n); err != nil {
			r.logger.Warn("failed to publish due reminder",
				zap.String("task_id", t.ID.String()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	r.logger.Info("due reminders sent", zap.Int("due", len(tasks)), zap.Int("sent", sent))
	return sent, nil
}
