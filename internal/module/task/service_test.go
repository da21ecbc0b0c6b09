package task

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/teamtask/server/internal/module/calendar"
	"github.com/teamtask/server/internal/module/team"
	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/events"
)

type fixture struct {
	svc   *Service
	repo  *memoryRepository
	teams *fakeTeams
	cal   *fakeCalendar
	jobs  *inlineJobs
	pub   *recordingPublisher

	teamID   uuid.UUID
	admin    uuid.UUID
	member   uuid.UUID
	member2  uuid.UUID
	outsider uuid.UUID
}

func setup() *fixture {
	f := &fixture{
		repo:     newMemoryRepository(),
		teams:    newFakeTeams(),
		cal:      newFakeCalendar(),
		jobs:     &inlineJobs{},
		pub:      &recordingPublisher{},
		teamID:   uuid.New(),
		admin:    uuid.New(),
		member:   uuid.New(),
		member2:  uuid.New(),
		outsider: uuid.New(),
	}
	f.teams.members[f.teamID] = []team.Membership{
		team.Resolved{UserID: f.admin, Email: "admin@x.com", Role: team.RoleAdmin},
		team.Resolved{UserID: f.member, Email: "m1@x.com", Role: team.RoleMember},
		team.Placeholder{Email: "pending@x.com", Role: team.RoleMember},
		team.Resolved{UserID: f.member2, Email: "m2@x.com", Role: team.RoleMember},
	}
	f.svc = NewService(f.repo, f.teams, f.cal, fakeCreds{cal: f.cal}, f.jobs, f.pub, nil, zap.NewNop())
	return f
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func (f *fixture) create(t *testing.T, actor uuid.UUID, assignedTo string, due *time.Time) *Task {
	t.Helper()
	tasks, err := f.svc.CreateTaskForTeam(context.Background(), actor, f.teamID, &CreateTaskRequest{
		Title:      "Write report",
		AssignedTo: assignedTo,
		DueDate:    due,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func assigneesOf(tasks []*Task) []uuid.UUID {
	out := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		out[i] = t.AssignedTo
	}
	return out
}

func TestCreateTaskForTeam_FanOut(t *testing.T) {
	ctx := context.Background()

	t.Run("one task per resolved member", func(t *testing.T) {
		f := setup()
		// duplicate resolved entry and a second placeholder
		f.teams.members[f.teamID] = append(f.teams.members[f.teamID],
			team.Resolved{UserID: f.member, Email: "m1@x.com", Role: team.RoleMember},
			team.Placeholder{Email: "other@x.com", Role: team.RoleMember},
		)

		tasks, err := f.svc.CreateTaskForTeam(ctx, f.admin, f.teamID, &CreateTaskRequest{
			Title:      "Quarterly review",
			AssignedTo: AssignAll,
		})
		require.NoError(t, err)

		assert.Len(t, tasks, 3)
		assert.ElementsMatch(t, []uuid.UUID{f.admin, f.member, f.member2}, assigneesOf(tasks))
		for _, task := range tasks {
			assert.Equal(t, "Quarterly review", task.Title)
			assert.Equal(t, f.admin, task.CreatedBy)
			assert.Equal(t, StatusPending, task.Status)
			assert.Equal(t, TypeTask, task.Type)
			assert.Equal(t, RecurrenceNone, task.Recurrence)
			assert.NotNil(t, f.repo.get(task.ID))
		}

		created := f.pub.ofType(events.TaskCreatedType)
		require.Len(t, created, 3)
		for _, n := range created {
			require.Len(t, n.Recipients, 1)
		}
	})

	t.Run("each task mirrored into its assignee calendar", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.admin] = true
		f.cal.connected[f.member] = true
		f.cal.connected[f.member2] = true
		f.cal.failFor[f.member] = errCalendarDown

		tasks, err := f.svc.CreateTaskForTeam(ctx, f.admin, f.teamID, &CreateTaskRequest{
			Title:      "Standup",
			AssignedTo: AssignAll,
			DueDate:    at("2024-01-10T09:00:00Z"),
		})
		require.NoError(t, err)
		require.Len(t, tasks, 3)

		assert.Len(t, f.cal.created[f.admin], 1)
		assert.Len(t, f.cal.created[f.member2], 1)
		assert.Empty(t, f.cal.created[f.member])

		for _, task := range tasks {
			stored := f.repo.get(task.ID)
			if task.AssignedTo == f.member {
				assert.False(t, stored.IsMirrored(), "failed mirror leaves the event id unset")
			} else {
				assert.True(t, stored.IsMirrored())
			}
		}
		assert.Len(t, f.jobs.errors, 1)
	})

	t.Run("single resolved member", func(t *testing.T) {
		f := setup()
		f.teams.members[f.teamID] = []team.Membership{
			team.Resolved{UserID: f.admin, Email: "admin@x.com", Role: team.RoleAdmin},
		}
		tasks, err := f.svc.CreateTaskForTeam(ctx, f.admin, f.teamID, &CreateTaskRequest{Title: "Solo", AssignedTo: AssignAll})
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestCreateTaskForTeam_Single(t *testing.T) {
	t.Run("mirrors into assignee not creator", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.admin] = true
		f.cal.connected[f.member] = true

		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))

		assert.Equal(t, f.member, task.AssignedTo)
		assert.Len(t, f.cal.created[f.member], 1)
		assert.Empty(t, f.cal.created[f.admin])
		assert.True(t, f.repo.get(task.ID).IsMirrored())

		created := f.pub.ofType(events.TaskCreatedType)
		require.Len(t, created, 1)
		assert.Equal(t, []uuid.UUID{f.member}, created[0].Recipients)
		assert.Equal(t, task.ID, created[0].TaskID)
	})

	t.Run("unconnected assignee is skipped quietly", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))

		assert.False(t, f.repo.get(task.ID).IsMirrored())
		assert.Empty(t, f.jobs.errors)
	})

	t.Run("undated task is not mirrored", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		f.create(t, f.admin, f.member.String(), nil)

		assert.Empty(t, f.jobs.ran)
	})

	t.Run("members may create tasks", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.member, f.member2.String(), nil)
		assert.Equal(t, f.member, task.CreatedBy)
	})
}

func TestCreateTaskForTeam_Errors(t *testing.T) {
	ctx := context.Background()
	f := setup()

	tests := []struct {
		name    string
		actor   uuid.UUID
		teamID  uuid.UUID
		req     CreateTaskRequest
		wantErr error
	}{
		{"missing title", f.admin, f.teamID, CreateTaskRequest{Title: "  ", AssignedTo: AssignAll}, ErrTitleRequired},
		{"missing assignee", f.admin, f.teamID, CreateTaskRequest{Title: "x"}, ErrAssigneeRequired},
		{"bad type", f.admin, f.teamID, CreateTaskRequest{Title: "x", AssignedTo: AssignAll, Type: "chore"}, ErrInvalidType},
		{"bad recurrence", f.admin, f.teamID, CreateTaskRequest{Title: "x", AssignedTo: AssignAll, Recurrence: "yearly"}, ErrInvalidRecurrence},
		{"recurrence ends before due", f.admin, f.teamID, CreateTaskRequest{
			Title: "x", AssignedTo: AssignAll,
			DueDate: at("2024-03-10T09:00:00Z"), RecurrenceEndDate: at("2024-01-10T09:00:00Z"),
		}, ErrRecurrenceEndOrder},
		{"outsider", f.outsider, f.teamID, CreateTaskRequest{Title: "x", AssignedTo: AssignAll}, ErrNotTeamMember},
		{"unknown team", f.admin, uuid.New(), CreateTaskRequest{Title: "x", AssignedTo: AssignAll}, team.ErrTeamNotFound},
		{"assignee not a member", f.admin, f.teamID, CreateTaskRequest{Title: "x", AssignedTo: f.outsider.String()}, ErrAssigneeNotMember},
		{"assignee not an id", f.admin, f.teamID, CreateTaskRequest{Title: "x", AssignedTo: "pending@x.com"}, ErrAssigneeNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTaskForTeam(ctx, tt.actor, tt.teamID, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.repo.tasks)
}

func TestGetTask(t *testing.T) {
	ctx := context.Background()
	f := setup()
	task := f.create(t, f.member, f.member.String(), nil)

	tests := []struct {
		name    string
		actor   uuid.UUID
		wantErr error
	}{
		{"assignee", f.member, nil},
		{"admin", f.admin, nil},
		{"other member", f.member2, ErrTaskForbidden},
		{"outsider", f.outsider, ErrTaskForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetTask(ctx, tt.actor, task.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, task.ID, got.ID)
		})
	}

	_, err := f.svc.GetTask(ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTask_WriteAuthorization(t *testing.T) {
	ctx := context.Background()

	// member creates a task for member2; third belongs to the team but not to the task.
	tests := []struct {
		name    string
		actor   func(f *fixture, third uuid.UUID) uuid.UUID
		allowed bool
	}{
		{"creator", func(f *fixture, _ uuid.UUID) uuid.UUID { return f.member }, true},
		{"assignee", func(f *fixture, _ uuid.UUID) uuid.UUID { return f.member2 }, true},
		{"team admin", func(f *fixture, _ uuid.UUID) uuid.UUID { return f.admin }, true},
		{"unrelated member", func(_ *fixture, third uuid.UUID) uuid.UUID { return third }, false},
		{"outsider", func(f *fixture, _ uuid.UUID) uuid.UUID { return f.outsider }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup()
			third := uuid.New()
			f.teams.members[f.teamID] = append(f.teams.members[f.teamID],
				team.Resolved{UserID: third, Email: "m3@x.com", Role: team.RoleMember})
			task := f.create(t, f.member, f.member2.String(), nil)
			actor := tt.actor(f, third)

			title := "Renamed"
			_, err := f.svc.UpdateTask(ctx, actor, task.ID, &UpdateTaskRequest{Title: &title})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, "Renamed", f.repo.get(task.ID).Title)
			} else {
				assert.ErrorIs(t, err, ErrTaskForbidden)
				assert.Equal(t, "Write report", f.repo.get(task.ID).Title)
			}
		})
	}
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update keeps other fields", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))

		status := StatusCompleted
		got, err := f.svc.UpdateTask(ctx, f.member, task.ID, &UpdateTaskRequest{Status: &status})
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, "Write report", got.Title)
		assert.Equal(t, task.DueDate, got.DueDate)

		updated := f.pub.ofType(events.TaskUpdatedType)
		require.Len(t, updated, 1)
		assert.Equal(t, []uuid.UUID{f.member}, updated[0].Recipients)
	})

	t.Run("reassignment moves the mirror to the new assignee", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		f.cal.connected[f.member2] = true
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
		eventID := *f.repo.get(task.ID).GoogleEventID

		got, err := f.svc.UpdateTask(ctx, f.admin, task.ID, &UpdateTaskRequest{AssignedTo: &f.member2})
		require.NoError(t, err)

		assert.Equal(t, f.member2, got.AssignedTo)
		assert.Equal(t, []string{eventID}, f.cal.updated[f.member2])
		assert.Empty(t, f.cal.updated[f.member])

		updated := f.pub.ofType(events.TaskUpdatedType)
		require.Len(t, updated, 1)
		assert.ElementsMatch(t, []uuid.UUID{f.member, f.member2}, updated[0].Recipients)
	})

	t.Run("new assignee without calendar is skipped", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))

		_, err := f.svc.UpdateTask(ctx, f.admin, task.ID, &UpdateTaskRequest{AssignedTo: &f.member2})
		require.NoError(t, err)
		assert.Empty(t, f.jobs.errors)
		assert.Empty(t, f.cal.updated[f.member2])
	})

	t.Run("unmirrored task issues no calendar update", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
		f.cal.connected[f.member] = true

		title := "Later"
		_, err := f.svc.UpdateTask(ctx, f.admin, task.ID, &UpdateTaskRequest{Title: &title})
		require.NoError(t, err)
		assert.Empty(t, f.cal.updated[f.member])
	})

	t.Run("invalid changes", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.admin, f.member.String(), nil)
		empty := ""
		badStatus := Status("archived")
		emptyType := Type("")
		emptyRecurrence := Recurrence("")
		badRecurrence := Recurrence("yearly")
		zero := 0

		tests := []struct {
			name    string
			req     UpdateTaskRequest
			wantErr error
		}{
			{"blank title", UpdateTaskRequest{Title: &empty}, ErrTitleRequired},
			{"bad status", UpdateTaskRequest{Status: &badStatus}, ErrInvalidStatus},
			{"empty type", UpdateTaskRequest{Type: &emptyType}, ErrInvalidType},
			{"empty recurrence", UpdateTaskRequest{Recurrence: &emptyRecurrence}, ErrInvalidRecurrence},
			{"bad recurrence", UpdateTaskRequest{Recurrence: &badRecurrence}, ErrInvalidRecurrence},
			{"zero duration", UpdateTaskRequest{Duration: &zero}, ErrInvalidDuration},
			{"assignee outside team", UpdateTaskRequest{AssignedTo: &f.outsider}, ErrAssigneeNotMember},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.UpdateTask(ctx, f.admin, task.ID, &tt.req)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
		stored := f.repo.get(task.ID)
		assert.Equal(t, f.member, stored.AssignedTo)
		assert.Equal(t, TypeTask, stored.Type)
		assert.Equal(t, RecurrenceNone, stored.Recurrence)
	})

	t.Run("keeps the calendar event id", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
		eventID := *f.repo.get(task.ID).GoogleEventID

		title := "Renamed"
		_, err := f.svc.UpdateTask(ctx, f.admin, task.ID, &UpdateTaskRequest{Title: &title})
		require.NoError(t, err)

		stored := f.repo.get(task.ID)
		assert.Equal(t, "Renamed", stored.Title)
		require.True(t, stored.IsMirrored())
		assert.Equal(t, eventID, *stored.GoogleEventID)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and retires the mirror", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
		eventID := *f.repo.get(task.ID).GoogleEventID

		require.NoError(t, f.svc.DeleteTask(ctx, f.member, task.ID))
		assert.Nil(t, f.repo.get(task.ID))
		assert.Equal(t, []string{eventID}, f.cal.deleted[f.member])
		assert.Len(t, f.pub.ofType(events.TaskDeletedType), 1)
	})

	t.Run("mirror failure does not block local delete", func(t *testing.T) {
		f := setup()
		f.cal.connected[f.member] = true
		task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
		f.cal.deleteErr = errCalendarDown

		require.NoError(t, f.svc.DeleteTask(ctx, f.admin, task.ID))
		assert.Nil(t, f.repo.get(task.ID))
		assert.Len(t, f.jobs.errors, 1)
	})

	t.Run("forbidden for unrelated member", func(t *testing.T) {
		f := setup()
		task := f.create(t, f.admin, f.member.String(), nil)

		err := f.svc.DeleteTask(ctx, f.member2, task.ID)
		assert.ErrorIs(t, err, ErrTaskForbidden)
		assert.NotNil(t, f.repo.get(task.ID))
	})

	t.Run("unknown task", func(t *testing.T) {
		f := setup()
		assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.admin, uuid.New()), ErrTaskNotFound)
	})
}

// goneEvents answers every delete with 404.
type goneEvents struct{ deletes int }

func (g *goneEvents) Insert(context.Context, string, *calendarapi.Event) (string, error) {
	return "evt", nil
}

func (g *goneEvents) Update(context.Context, string, string, *calendarapi.Event) error { return nil }

func (g *goneEvents) Delete(context.Context, string, string) error {
	g.deletes++
	return &googleapi.Error{Code: http.StatusNotFound}
}

type staticCreds struct{ cred user.CalendarCredential }

func (s staticCreds) CalendarCredential(context.Context, uuid.UUID) (*user.CalendarCredential, error) {
	cred := s.cred
	return &cred, nil
}

func (s staticCreds) SaveCalendarCredential(context.Context, uuid.UUID, user.CalendarCredential) error {
	return nil
}

func TestDeleteTask_MirrorAlreadyGone(t *testing.T) {
	ctx := context.Background()
	f := setup()

	expiry := time.Now().Add(time.Hour)
	creds := staticCreds{cred: user.CalendarCredential{AccessToken: "a", RefreshToken: "r", Expiry: &expiry}}
	api := &goneEvents{}
	factory := func(context.Context, oauth2.TokenSource) (calendar.EventsAPI, error) { return api, nil }
	client := calendar.NewGoogleClient(&oauth2.Config{}, creds, factory, calendar.Options{TimeZone: "UTC"}, nil, zap.NewNop())
	f.svc = NewService(f.repo, f.teams, client, creds, f.jobs, f.pub, nil, zap.NewNop())

	task := f.create(t, f.admin, f.member.String(), at("2024-01-10T09:00:00Z"))
	require.True(t, f.repo.get(task.ID).IsMirrored())

	require.NoError(t, f.svc.DeleteTask(ctx, f.admin, task.ID))
	assert.Nil(t, f.repo.get(task.ID))
	assert.Equal(t, 1, api.deletes)
	assert.Empty(t, f.jobs.errors, "a 404 from the calendar counts as deleted")
}

func TestListTeamTasks(t *testing.T) {
	ctx := context.Background()
	f := setup()
	_, err := f.svc.CreateTaskForTeam(ctx, f.admin, f.teamID, &CreateTaskRequest{Title: "All hands", AssignedTo: AssignAll})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   uuid.UUID
		want    []uuid.UUID
		wantErr error
	}{
		{"admin sees all", f.admin, []uuid.UUID{f.admin, f.member, f.member2}, nil},
		{"member sees own", f.member, []uuid.UUID{f.member}, nil},
		{"outsider", f.outsider, nil, ErrNotTeamMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := f.svc.ListTeamTasks(ctx, tt.actor, f.teamID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, assigneesOf(tasks))
		})
	}

	_, err = f.svc.ListTeamTasks(ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, team.ErrTeamNotFound)
}

func TestListMyAndFilteredTasks(t *testing.T) {
	ctx := context.Background()
	f := setup()

	mine := f.create(t, f.member, f.member2.String(), at("2024-02-01T09:00:00Z"))
	assigned := f.create(t, f.admin, f.member.String(), at("2024-01-15T09:00:00Z"))
	undated := f.create(t, f.admin, f.member.String(), nil)
	f.create(t, f.admin, f.member2.String(), nil)

	completed := StatusCompleted
	_, err := f.svc.UpdateTask(ctx, f.member, assigned.ID, &UpdateTaskRequest{Status: &completed})
	require.NoError(t, err)

	t.Run("my tasks newest first", func(t *testing.T) {
		tasks, err := f.svc.ListMyTasks(ctx, f.member)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []uuid.UUID{undated.ID, assigned.ID, mine.ID}, []uuid.UUID{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	})

	tests := []struct {
		name    string
		status  string
		sortBy  string
		want    []uuid.UUID
		wantErr error
	}{
		{"default sort", "", "", []uuid.UUID{undated.ID, assigned.ID, mine.ID}, nil},
		{"by due date", "", "dueDate", []uuid.UUID{assigned.ID, mine.ID, undated.ID}, nil},
		{"pending only", "pending", "createdAt", []uuid.UUID{undated.ID, mine.ID}, nil},
		{"completed only", "completed", "", []uuid.UUID{assigned.ID}, nil},
		{"bad status", "archived", "", nil, ErrInvalidStatus},
		{"bad sort", "", "title", nil, ErrInvalidSort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := f.svc.ListFilteredTasks(ctx, f.member, tt.status, tt.sortBy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]uuid.UUID, len(tasks))
			for i, task := range tasks {
				ids[i] = task.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSyncOpenTasksToCalendar(t *testing.T) {
	ctx := context.Background()

	t.Run("not connected", func(t *testing.T) {
		f := setup()
		_, err := f.svc.SyncOpenTasksToCalendar(ctx, f.member)
		assert.ErrorIs(t, err, calendar.ErrNoCredential)
	})

	t.Run("mirrors eligible tasks and counts successes", func(t *testing.T) {
		f := setup()
		mirrored := "existing"
		f.repo.put(&Task{ID: uuid.New(), Title: "a", AssignedTo: f.member, TeamID: f.teamID, Status: StatusPending, DueDate: at("2024-01-10T09:00:00Z")})
		f.repo.put(&Task{ID: uuid.New(), Title: "b", AssignedTo: f.member, TeamID: f.teamID, Status: StatusPending, DueDate: at("2024-01-11T09:00:00Z")})
		f.repo.put(&Task{ID: uuid.New(), Title: "undated", AssignedTo: f.member, TeamID: f.teamID, Status: StatusPending})
		f.repo.put(&Task{ID: uuid.New(), Title: "done", AssignedTo: f.member, TeamID: f.teamID, Status: StatusCompleted, DueDate: at("2024-01-12T09:00:00Z")})
		f.repo.put(&Task{ID: uuid.New(), Title: "synced", AssignedTo: f.member, TeamID: f.teamID, Status: StatusPending, DueDate: at("2024-01-12T09:00:00Z"), GoogleEventID: &mirrored})
		f.repo.put(&Task{ID: uuid.New(), Title: "theirs", AssignedTo: f.member2, TeamID: f.teamID, Status: StatusPending, DueDate: at("2024-01-12T09:00:00Z")})
		f.cal.connected[f.member] = true

		added, err := f.svc.SyncOpenTasksToCalendar(ctx, f.member)
		require.NoError(t, err)
		assert.Equal(t, 2, added)
		assert.Len(t, f.cal.created[f.member], 2)

		again, err := f.svc.SyncOpenTasksToCalendar(ctx, f.member)
		require.NoError(t, err)
		assert.Zero(t, again)
	})

	t.Run("per-task failures are counted out", func(t *testing.T) {
		f := setup()
		f.repo.put(&Task{ID: uuid.New(), Title: "a", AssignedTo: f.member, TeamID: f.teamID, Status: StatusPending, DueDate: at("2024-01-10T09:00:00Z")})
		f.cal.connected[f.member] = true
		f.cal.failFor[f.member] = errCalendarDown

		added, err := f.svc.SyncOpenTasksToCalendar(ctx, f.member)
		require.NoError(t, err)
		assert.Zero(t, added)
	})
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	f := setup()
	f.pub.err = events.ErrBroadcasterStopped

	task := f.create(t, f.admin, f.member.String(), nil)
	assert.NotNil(t, f.repo.get(task.ID))
}

func TestTask_Schedule(t *testing.T) {
	duration := 30
	task := &Task{
		Title:             "Sprint review",
		DueDate:           at("2024-01-10T09:00:00Z"),
		Duration:          &duration,
		Recurrence:        RecurrenceWeekly,
		RecurrenceEndDate: at("2024-03-10T09:00:00Z"),
	}

	s := task.Schedule()
	require.NotNil(t, s)
	start, end := s.Window()
	assert.Equal(t, *task.DueDate, start)
	assert.Equal(t, start.Add(30*time.Minute), end)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;UNTIL=20240310T090000Z"}, s.RecurrenceRule())

	assert.Nil(t, (&Task{Title: "undated"}).Schedule())
}
