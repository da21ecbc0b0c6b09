package team

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/teamtask/server/internal/module/user"
)

// memoryRepository is an in-memory Repository that enforces the same unique
// constraints as the team_members indexes.
type memoryRepository struct {
	mu      sync.Mutex
	teams   map[uuid.UUID]*Team
	members []*Member
	nextID  uint64
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{teams: map[uuid.UUID]*Team{}}
}

func (r *memoryRepository) CreateTeam(_ context.Context, team *Team, creator Resolved) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *team
	r.teams[team.ID] = &cp
	r.insertLocked(team.ID, creator)
	return nil
}

func (r *memoryRepository) GetTeam(_ context.Context, id uuid.UUID) (*Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepository) ListTeamsForUser(_ context.Context, userID uuid.UUID) ([]*Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Team
	for _, m := range r.members {
		if m.UserID != nil && *m.UserID == userID {
			out = append(out, r.teams[m.TeamID])
		}
	}
	return out, nil
}

func (r *memoryRepository) DeleteTeam(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return ErrTeamNotFound
	}
	delete(r.teams, id)
	r.members = slices.DeleteFunc(r.members, func(m *Member) bool { return m.TeamID == id })
	return nil
}

func (r *memoryRepository) ListMembers(_ context.Context, teamID uuid.UUID) ([]Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Membership
	for _, m := range r.members {
		if m.TeamID == teamID {
			out = append(out, m.Membership())
		}
	}
	return out, nil
}

func (r *memoryRepository) find(pred func(*Member) bool) (Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if pred(m) {
			return m.Membership(), nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (r *memoryRepository) GetMembershipByUser(_ context.Context, teamID, userID uuid.UUID) (Membership, error) {
	return r.find(func(m *Member) bool { return m.TeamID == teamID && m.UserID != nil && *m.UserID == userID })
}

func (r *memoryRepository) GetMembershipByEmail(_ context.Context, teamID uuid.UUID, email string) (Membership, error) {
	return r.find(func(m *Member) bool { return m.TeamID == teamID && m.Email == email })
}

func (r *memoryRepository) InsertMember(_ context.Context, teamID uuid.UUID, ms Membership) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(teamID, ms), nil
}

func (r *memoryRepository) insertLocked(teamID uuid.UUID, ms Membership) bool {
	row := newMember(teamID, ms)
	for _, m := range r.members {
		if m.TeamID != teamID {
			continue
		}
		if m.Email == row.Email {
			return false
		}
		if m.UserID != nil && row.UserID != nil && *m.UserID == *row.UserID {
			return false
		}
	}
	r.nextID++
	row.ID = r.nextID
	r.members = append(r.members, row)
	return true
}

func (r *memoryRepository) hasUserLocked(teamID, userID uuid.UUID) bool {
	for _, m := range r.members {
		if m.TeamID == teamID && m.UserID != nil && *m.UserID == userID {
			return true
		}
	}
	return false
}

func (r *memoryRepository) ClaimPlaceholder(_ context.Context, teamID uuid.UUID, email string, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasUserLocked(teamID, userID) {
		return false, nil
	}
	for _, m := range r.members {
		if m.TeamID == teamID && m.Email == email && m.UserID == nil {
			id := userID
			m.UserID = &id
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) ClaimPlaceholders(_ context.Context, email string, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var teams []uuid.UUID
	for _, m := range r.members {
		if m.Email == email && m.UserID == nil && !r.hasUserLocked(m.TeamID, userID) {
			id := userID
			m.UserID = &id
			teams = append(teams, m.TeamID)
		}
	}
	return teams, nil
}

func (r *memoryRepository) SetRole(_ context.Context, teamID uuid.UUID, email string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.TeamID == teamID && m.Email == email {
			m.Role = role
			return nil
		}
	}
	return ErrMembershipNotFound
}

func (r *memoryRepository) RemoveMember(_ context.Context, teamID uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.members)
	r.members = slices.DeleteFunc(r.members, func(m *Member) bool { return m.TeamID == teamID && m.Email == email })
	if len(r.members) == before {
		return ErrMembershipNotFound
	}
	return nil
}

// memoryUsers is an in-memory UserDirectory.
type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uuid.UUID]*user.User{}}
}

func (u *memoryUsers) add(email string) *user.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr := &user.User{ID: uuid.New(), Email: email, Name: email}
	u.users[usr.ID] = usr
	return usr
}

func (u *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *usr
	cp.TeamIDs = slices.Clone(usr.TeamIDs)
	return &cp, nil
}

func (u *memoryUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, usr := range u.users {
		if usr.Email == email {
			cp := *usr
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (u *memoryUsers) AddTeam(_ context.Context, userID, teamID uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if usr, ok := u.users[userID]; ok && !usr.HasTeam(teamID) {
		usr.TeamIDs = append(usr.TeamIDs, teamID.String())
	}
	return nil
}

func (u *memoryUsers) RemoveTeam(_ context.Context, userID, teamID uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if usr, ok := u.users[userID]; ok {
		usr.TeamIDs = slices.DeleteFunc(usr.TeamIDs, func(s string) bool { return s == teamID.String() })
	}
	return nil
}

func (u *memoryUsers) RemoveTeamFromAll(ctx context.Context, teamID uuid.UUID) (int64, error) {
	u.mu.Lock()
	ids := make([]uuid.UUID, 0, len(u.users))
	for id, usr := range u.users {
		if usr.HasTeam(teamID) {
			ids = append(ids, id)
		}
	}
	u.mu.Unlock()
	for _, id := range ids {
		_ = u.RemoveTeam(ctx, id, teamID)
	}
	return int64(len(ids)), nil
}

type sentMail struct {
	to    string
	kind  string
	token string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) SendLoginLink(_ context.Context, to string, _ *Team) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: to, kind: "login"})
	return nil
}

func (n *recordingNotifier) SendRegistrationLink(_ context.Context, to string, _ *Team, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: to, kind: "register", token: token})
	return nil
}

type stubSigner struct{}

func (stubSigner) Sign(teamID uuid.UUID) (string, error) {
	return "invite-" + teamID.String(), nil
}
