package task

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamtask/server/internal/infra/jobs"
	"github.com/teamtask/server/internal/module/calendar"
	"github.com/teamtask/server/internal/module/policy"
	"github.com/teamtask/server/internal/module/team"
	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/events"
)

// memoryRepository is an in-memory Repository.
type memoryRepository struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	seq   map[uuid.UUID]int
	next  int
	clock time.Time
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		tasks: make(map[uuid.UUID]*Task),
		seq:   make(map[uuid.UUID]int),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepository) Create(_ context.Context, tasks []*Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tasks {
		r.clock = r.clock.Add(time.Second)
		t.CreatedAt, t.UpdatedAt = r.clock, r.clock
		cp := *t
		r.tasks[t.ID] = &cp
		r.next++
		r.seq[t.ID] = r.next
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepository) List(_ context.Context, f *Filter) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Task
	for _, t := range r.tasks {
		if f.VisibleTo != nil && t.CreatedBy != *f.VisibleTo && t.AssignedTo != *f.VisibleTo {
			continue
		}
		if f.AssignedTo != nil && t.AssignedTo != *f.AssignedTo {
			continue
		}
		if f.TeamID != nil && t.TeamID != *f.TeamID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.SortBy == SortDueDate {
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return false
			case a.DueDate != nil && b.DueDate == nil:
				return true
			case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
				return a.DueDate.Before(*b.DueDate)
			}
		}
		return r.seq[a.ID] > r.seq[b.ID]
	})
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[t.ID]
	if !ok {
		return ErrTaskNotFound
	}
	cp := *t
	cp.GoogleEventID = stored.GoogleEventID
	cp.CreatedBy, cp.TeamID, cp.CreatedAt = stored.CreatedBy, stored.TeamID, stored.CreatedAt
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memoryRepository) SetGoogleEventID(_ context.Context, id uuid.UUID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.GoogleEventID = &eventID
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memoryRepository) ListUnmirrored(_ context.Context, assignee uuid.UUID) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Task
	for _, t := range r.tasks {
		if t.AssignedTo == assignee && t.Status == StatusPending && !t.IsMirrored() && t.DueDate != nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

func (r *memoryRepository) ListDueBefore(_ context.Context, until time.Time) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Task
	for _, t := range r.tasks {
		if t.Status == StatusPending && t.DueDate != nil && !t.DueDate.After(until) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryRepository) get(id uuid.UUID) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

func (r *memoryRepository) put(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	r.next++
	r.seq[t.ID] = r.next
}

// fakeTeams is a TeamDirectory over fixed memberships.
type fakeTeams struct {
	members map[uuid.UUID][]team.Membership
}

func newFakeTeams() *fakeTeams {
	return &fakeTeams{members: make(map[uuid.UUID][]team.Membership)}
}

func (f *fakeTeams) RoleOf(_ context.Context, teamID, userID uuid.UUID) (policy.Role, error) {
	ms, ok := f.members[teamID]
	if !ok {
		return policy.RoleNone, team.ErrTeamNotFound
	}
	for _, m := range ms {
		if r, ok := m.(team.Resolved); ok && r.UserID == userID {
			return r.Role, nil
		}
	}
	return policy.RoleNone, nil
}

func (f *fakeTeams) Members(_ context.Context, teamID uuid.UUID) ([]team.Membership, error) {
	ms, ok := f.members[teamID]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	return ms, nil
}

// fakeCalendar records calls per calendar owner.
type fakeCalendar struct {
	mu        sync.Mutex
	connected map[uuid.UUID]bool
	failFor   map[uuid.UUID]error
	deleteErr error
	created   map[uuid.UUID][]string
	updated   map[uuid.UUID][]string
	deleted   map[uuid.UUID][]string
	next      int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		connected: make(map[uuid.UUID]bool),
		failFor:   make(map[uuid.UUID]error),
		created:   make(map[uuid.UUID][]string),
		updated:   make(map[uuid.UUID][]string),
		deleted:   make(map[uuid.UUID][]string),
	}
}

func (f *fakeCalendar) check(userID uuid.UUID) error {
	if !f.connected[userID] {
		return calendar.ErrNoCredential
	}
	return f.failFor[userID]
}

func (f *fakeCalendar) CreateEvent(_ context.Context, userID uuid.UUID, s *calendar.Schedule) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(userID); err != nil {
		return "", err
	}
	f.next++
	id := s.Title + "-" + userID.String()[:8]
	f.created[userID] = append(f.created[userID], id)
	return id, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, userID uuid.UUID, eventID string, _ *calendar.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(userID); err != nil {
		return err
	}
	f.updated[userID] = append(f.updated[userID], eventID)
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, userID uuid.UUID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(userID); err != nil {
		return err
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted[userID] = append(f.deleted[userID], eventID)
	return nil
}

// fakeCreds reports calendar connection from fakeCalendar.
type fakeCreds struct {
	cal *fakeCalendar
}

func (f fakeCreds) CalendarCredential(_ context.Context, userID uuid.UUID) (*user.CalendarCredential, error) {
	if f.cal.connected[userID] {
		return &user.CalendarCredential{AccessToken: "a", RefreshToken: "r"}, nil
	}
	return &user.CalendarCredential{}, nil
}

// inlineJobs runs jobs synchronously and keeps their errors.
type inlineJobs struct {
	mu     sync.Mutex
	ran    []string
	errors []error
}

func (j *inlineJobs) Submit(job jobs.Job) error {
	err := job.Run(context.Background())
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ran = append(j.ran, job.Type)
	if err != nil {
		j.errors = append(j.errors, err)
	}
	return nil
}

// recordingPublisher keeps published notifications.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []*events.Notification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, n *events.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPublisher) ofType(kind string) []*events.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.Notification
	for _, n := range p.sent {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

var errCalendarDown = errors.New("calendar down")
