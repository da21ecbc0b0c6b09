package team

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtask/server/internal/module/policy"
	"github.com/teamtask/server/internal/module/user"
)

// UserDirectory is the identity store as seen by the team directory.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	AddTeam(ctx context.Context, userID, teamID uuid.UUID) error
	RemoveTeam(ctx context.Context, userID, teamID uuid.UUID) error
	RemoveTeamFromAll(ctx context.Context, teamID uuid.UUID) (int64, error)
}

// InviteSigner signs invite tokens.
type InviteSigner interface {
	Sign(teamID uuid.UUID) (string, error)
}

// Service provides team directory operations.
type Service struct {
	repo     Repository
	users    UserDirectory
	signer   InviteSigner
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a new team service.
func NewService(repo Repository, users UserDirectory, signer InviteSigner, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		signer:   signer,
		notifier: notifier,
		logger:   logger,
	}
}

// ========== Lookups ==========

// actor loads the team and the actor's role in it.
func (s *Service) actor(ctx context.Context, teamID, userID uuid.UUID) (*Team, policy.Actor, error) {
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		return nil, policy.Actor{}, err
	}
	role, err := s.roleIn(ctx, teamID, userID)
	if err != nil {
		return nil, policy.Actor{}, err
	}
	return team, policy.Actor{UserID: userID, Role: role}, nil
}

func (s *Service) roleIn(ctx context.Context, teamID, userID uuid.UUID) (Role, error) {
	ms, err := s.repo.GetMembershipByUser(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return policy.RoleNone, nil
		}
		return policy.RoleNone, err
	}
	return ms.MemberRole(), nil
}

// RoleOf returns userID's role in the team, or policy.RoleNone for
// non-members. It fails with ErrTeamNotFound for unknown teams.
func (s *Service) RoleOf(ctx context.Context, teamID, userID uuid.UUID) (Role, error) {
	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		return policy.RoleNone, err
	}
	return s.roleIn(ctx, teamID, userID)
}

// Members returns the team's memberships in order.
func (s *Service) Members(ctx context.Context, teamID uuid.UUID) ([]Membership, error) {
	return s.repo.ListMembers(ctx, teamID)
}

// GetTeam returns the team with its members. Non-members get ErrTeamNotFound.
func (s *Service) GetTeam(ctx context.Context, teamID, actorID uuid.UUID) (*Detail, error) {
	team, actor, err := s.actor(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsMember() {
		return nil, ErrTeamNotFound
	}

	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &Detail{Team: team, Members: members, MyRole: actor.Role}, nil
}

// ListTeams lists the teams where the actor is a resolved member.
func (s *Service) ListTeams(ctx context.Context, actorID uuid.UUID) ([]*Team, error) {
	return s.repo.ListTeamsForUser(ctx, actorID)
}

// ========== Team lifecycle ==========

// CreateTeam creates a team with the actor as its sole admin member.
func (s *Service) CreateTeam(ctx context.Context, actorID uuid.UUID, name string) (*Team, error) {
	if !policy.CanCreateTeam(policy.Actor{UserID: actorID}) {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	creator, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	team := &Team{
		ID:        uuid.New(),
		Name:      name,
		CreatedBy: actorID,
	}
	if err := s.repo.CreateTeam(ctx, team, Resolved{UserID: actorID, Email: creator.Email, Role: RoleAdmin}); err != nil {
		return nil, err
	}

	if err := s.users.AddTeam(ctx, actorID, team.ID); err != nil {
		s.logger.Error("failed to record team on creator",
			zap.String("team_id", team.ID.String()),
			zap.String("user_id", actorID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("team created",
		zap.String("team_id", team.ID.String()),
		zap.String("created_by", actorID.String()),
		zap.String("name", team.Name),
	)

	return team, nil
}

// DeleteTeam deletes a team. Only its creator may do so.
// The team id is removed from every user's team list first; if deleting the
// team itself then fails, users and team disagree until the delete is retried.
func (s *Service) DeleteTeam(ctx context.Context, teamID, actorID uuid.UUID) error {
	team, actor, err := s.actor(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTeam(actor, policy.TeamRef{CreatedBy: team.CreatedBy}) {
		return ErrOnlyCreatorCanDelete
	}

	cleared, err := s.users.RemoveTeamFromAll(ctx, teamID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteTeam(ctx, teamID); err != nil {
		s.logger.Error("team delete failed after clearing user team lists",
			zap.String("team_id", teamID.String()),
			zap.Int64("users_cleared", cleared),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("team deleted",
		zap.String("team_id", teamID.String()),
		zap.String("deleted_by", actorID.String()),
		zap.Int64("users_cleared", cleared),
	)
	return nil
}

// ========== Invite lifecycle ==========

// SendInvite invites email to the team. Existing users become members at
// once; unknown addresses get a placeholder and a registration link.
func (s *Service) SendInvite(ctx context.Context, inviterID, teamID uuid.UUID, email string) (*InviteResult, error) {
	team, actor, err := s.actor(ctx, teamID, inviterID)
	if err != nil {
		return nil, err
	}
	if !policy.CanInvite(actor) {
		return nil, ErrNotMember
	}

	email, err = user.ValidateEmail(email)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.addExistingUser(ctx, team, invitee)
	case errors.Is(err, user.ErrUserNotFound):
		return s.reserveEmail(ctx, team, email)
	default:
		return nil, err
	}
}

func (s *Service) addExistingUser(ctx context.Context, team *Team, invitee *user.User) (*InviteResult, error) {
	claimed, err := s.repo.ClaimPlaceholder(ctx, team.ID, invitee.Email, invitee.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.repo.InsertMember(ctx, team.ID, Resolved{UserID: invitee.ID, Email: invitee.Email, Role: RoleMember}); err != nil {
			return nil, err
		}
	}
	if err := s.users.AddTeam(ctx, invitee.ID, team.ID); err != nil {
		return nil, err
	}

	result := &InviteResult{Email: invitee.Email, Status: InviteStatusMember}
	if err := s.notifier.SendLoginLink(ctx, invitee.Email, team); err != nil {
		s.logger.Warn("invite email failed", zap.String("team_id", team.ID.String()), zap.Error(err))
	} else {
		result.EmailSent = true
	}

	s.logger.Info("member added",
		zap.String("team_id", team.ID.String()),
		zap.String("user_id", invitee.ID.String()),
	)
	return result, nil
}

func (s *Service) reserveEmail(ctx context.Context, team *Team, email string) (*InviteResult, error) {
	if _, err := s.repo.InsertMember(ctx, team.ID, Placeholder{Email: email, Role: RoleMember}); err != nil {
		return nil, err
	}

	token, err := s.signer.Sign(team.ID)
	if err != nil {
		return nil, err
	}

	result := &InviteResult{Email: email, Status: InviteStatusInvited}
	if err := s.notifier.SendRegistrationLink(ctx, email, team, token); err != nil {
		s.logger.Warn("invite email failed", zap.String("team_id", team.ID.String()), zap.Error(err))
	} else {
		result.EmailSent = true
	}

	s.logger.Info("invite placeholder reserved", zap.String("team_id", team.ID.String()))
	return result, nil
}

// ResolveInvites binds u to every placeholder reserved for u's email. The
// invite's own team gets a fresh member entry when it held no placeholder.
func (s *Service) ResolveInvites(ctx context.Context, u *user.User, inviteTeamID uuid.UUID) error {
	flipped, err := s.repo.ClaimPlaceholders(ctx, u.Email, u.ID)
	if err != nil {
		return err
	}

	for _, teamID := range flipped {
		if err := s.users.AddTeam(ctx, u.ID, teamID); err != nil {
			return err
		}
	}

	if inviteTeamID != uuid.Nil && !slices.Contains(flipped, inviteTeamID) {
		if _, err := s.repo.GetTeam(ctx, inviteTeamID); err != nil {
			if errors.Is(err, ErrTeamNotFound) {
				s.logger.Info("invite team no longer exists", zap.String("team_id", inviteTeamID.String()))
				return nil
			}
			return err
		}
		if _, err := s.repo.InsertMember(ctx, inviteTeamID, Resolved{UserID: u.ID, Email: u.Email, Role: RoleMember}); err != nil {
			return err
		}
		if err := s.users.AddTeam(ctx, u.ID, inviteTeamID); err != nil {
			return err
		}
	}

	s.logger.Info("invites resolved",
		zap.String("user_id", u.ID.String()),
		zap.Int("placeholders", len(flipped)),
	)
	return nil
}

// ========== Membership changes ==========

// Promote makes the member with targetEmail an admin. Idempotent.
func (s *Service) Promote(ctx context.Context, teamID, actorID uuid.UUID, targetEmail string) error {
	_, actor, err := s.actor(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanPromote(actor) {
		return ErrAdminRequired
	}

	if err := s.repo.SetRole(ctx, teamID, user.NormalizeEmail(targetEmail), RoleAdmin); err != nil {
		return err
	}

	s.logger.Info("member promoted",
		zap.String("team_id", teamID.String()),
		zap.String("promoted_by", actorID.String()),
	)
	return nil
}

// RemoveMember removes the membership for email. The creator cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, teamID, actorID uuid.UUID, email string) error {
	team, actor, err := s.actor(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !policy.CanRemoveMember(actor) {
		return ErrAdminRequired
	}

	email = user.NormalizeEmail(email)
	ms, err := s.repo.GetMembershipByEmail(ctx, teamID, email)
	if err != nil {
		return err
	}

	var removedUser uuid.UUID
	switch m := ms.(type) {
	case Resolved:
		if m.UserID == team.CreatedBy {
			return ErrCannotRemoveCreator
		}
		removedUser = m.UserID
	case Placeholder:
	}

	if err := s.repo.RemoveMember(ctx, teamID, email); err != nil {
		return err
	}
	if removedUser != uuid.Nil {
		if err := s.users.RemoveTeam(ctx, removedUser, teamID); err != nil {
			return err
		}
	}

	s.logger.Info("member removed",
		zap.String("team_id", teamID.String()),
		zap.String("removed_by", actorID.String()),
	)
	return nil
}
