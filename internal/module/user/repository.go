package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Repository defines the interface for user data access.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error

	// Team list maintenance. Each is a single idempotent statement.
	AddTeam(ctx context.Context, userID, teamID uuid.UUID) error
	RemoveTeam(ctx context.Context, userID, teamID uuid.UUID) error
	RemoveTeamFromAll(ctx context.Context, teamID uuid.UUID) (int64, error)

	// Calendar credential operations
	SaveCalendarCredential(ctx context.Context, userID uuid.UUID, cred CalendarCredential) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	if user.TeamIDs == nil {
		user.TeamIDs = []string{}
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if apperrors.IsUniqueViolation(err) {
		return ErrEmailAlreadyExists
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	result := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) AddTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND NOT (?::text = ANY(team_ids))", userID, teamID.String()).
		Update("team_ids", gorm.Expr("array_append(team_ids, ?::text)", teamID.String())).
		Error
}

func (r *repository) RemoveTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Update("team_ids", gorm.Expr("array_remove(team_ids, ?::text)", teamID.String())).
		Error
}

func (r *repository) RemoveTeamFromAll(ctx context.Context, teamID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&User{}).
		Where("?::text = ANY(team_ids)", teamID.String()).
		Update("team_ids", gorm.Expr("array_remove(team_ids, ?::text)", teamID.String()))
	return result.RowsAffected, result.Error
}

func (r *repository) SaveCalendarCredential(ctx context.Context, userID uuid.UUID, cred CalendarCredential) error {
	result := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"calendar_access_token":  cred.AccessToken,
			"calendar_refresh_token": cred.RefreshToken,
			"calendar_token_expiry":  cred.Expiry,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
