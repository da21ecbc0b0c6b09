package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines team data access.
// Membership invariants are enforced by the unique indexes on team_members,
// so every write is a single conditional statement.
type Repository interface {
	CreateTeam(ctx context.Context, team *Team, creator Resolved) error
	GetTeam(ctx context.Context, id uuid.UUID) (*Team, error)
	ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]*Team, error)
	DeleteTeam(ctx context.Context, id uuid.UUID) error

	ListMembers(ctx context.Context, teamID uuid.UUID) ([]Membership, error)
	GetMembershipByUser(ctx context.Context, teamID, userID uuid.UUID) (Membership, error)
	GetMembershipByEmail(ctx context.Context, teamID uuid.UUID, email string) (Membership, error)
	// InsertMember adds ms unless a row for the same email or user exists.
	InsertMember(ctx context.Context, teamID uuid.UUID, ms Membership) (bool, error)
	// ClaimPlaceholder binds the team's placeholder for email to userID in place.
	ClaimPlaceholder(ctx context.Context, teamID uuid.UUID, email string, userID uuid.UUID) (bool, error)
	// ClaimPlaceholders binds every placeholder for email to userID and
	// returns the affected team ids.
	ClaimPlaceholders(ctx context.Context, email string, userID uuid.UUID) ([]uuid.UUID, error)
	SetRole(ctx context.Context, teamID uuid.UUID, email string, role Role) error
	RemoveMember(ctx context.Context, teamID uuid.UUID, email string) error
}

// repository implements Repository using GORM.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new team repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates the team tables and the partial unique index that keeps a
// user from resolving twice in one team.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Team{}, &Member{}); err != nil {
		return fmt.Errorf("migrate teams: %w", err)
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_members_team_user
		ON team_members (team_id, user_id) WHERE user_id IS NOT NULL`).Error
}

// CreateTeam inserts the team and its creator's admin membership.
func (r *repository) CreateTeam(ctx context.Context, team *Team, creator Resolved) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(newMember(team.ID, creator)).Error
	})
}

// GetTeam retrieves a team by ID.
func (r *repository) GetTeam(ctx context.Context, id uuid.UUID) (*Team, error) {
	var team Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// ListTeamsForUser lists the teams where userID is a resolved member.
func (r *repository) ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]*Team, error) {
	var teams []*Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at DESC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// DeleteTeam removes the team and its member rows.
func (r *repository) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&Member{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Team{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTeamNotFound
		}
		return nil
	})
}

// ListMembers lists a team's memberships in insertion order.
func (r *repository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]Membership, error) {
	var rows []*Member
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Membership, len(rows))
	for i, row := range rows {
		out[i] = row.Membership()
	}
	return out, nil
}

// GetMembershipByUser retrieves a user's resolved membership.
func (r *repository) GetMembershipByUser(ctx context.Context, teamID, userID uuid.UUID) (Membership, error) {
	return r.getMembership(ctx, "team_id = ? AND user_id = ?", teamID, userID)
}

// GetMembershipByEmail retrieves the membership reserved for or bound to email.
func (r *repository) GetMembershipByEmail(ctx context.Context, teamID uuid.UUID, email string) (Membership, error) {
	return r.getMembership(ctx, "team_id = ? AND email = ?", teamID, email)
}

func (r *repository) getMembership(ctx context.Context, query string, args ...any) (Membership, error) {
	var row Member
	err := r.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return row.Membership(), nil
}

// InsertMember adds a membership; a conflict on either unique index is a no-op.
func (r *repository) InsertMember(ctx context.Context, teamID uuid.UUID, ms Membership) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(newMember(teamID, ms))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimPlaceholder binds one team's placeholder for email to userID.
func (r *repository) ClaimPlaceholder(ctx context.Context, teamID uuid.UUID, email string, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE team_members SET user_id = ?, updated_at = NOW()
		WHERE team_id = ? AND email = ? AND user_id IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM team_members m WHERE m.team_id = team_members.team_id AND m.user_id = ?
		)`, userID, teamID, email, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimPlaceholders binds all placeholders for email to userID in one statement.
func (r *repository) ClaimPlaceholders(ctx context.Context, email string, userID uuid.UUID) ([]uuid.UUID, error) {
	var rows []struct {
		TeamID uuid.UUID
	}
	err := r.db.WithContext(ctx).Raw(`
		UPDATE team_members SET user_id = ?, updated_at = NOW()
		WHERE email = ? AND user_id IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM team_members m WHERE m.team_id = team_members.team_id AND m.user_id = ?
		)
		RETURNING team_id`, userID, email, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.TeamID
	}
	return ids, nil
}

// SetRole updates the role of the membership for email.
func (r *repository) SetRole(ctx context.Context, teamID uuid.UUID, email string, role Role) error {
	result := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("team_id = ? AND email = ?", teamID, email).
		Updates(map[string]interface{}{"role": role, "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// RemoveMember deletes the membership for email.
func (r *repository) RemoveMember(ctx context.Context, teamID uuid.UUID, email string) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ? AND email = ?", teamID, email).
		Delete(&Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}
