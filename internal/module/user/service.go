package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service provides identity store operations.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks its format.
func ValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if err := checkmail.ValidateFormat(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates a new user with email and password.
func (s *Service) Register(ctx context.Context, in *RegisterInput) (*User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		TeamIDs:      []string{},
	}

	// The unique index catches a concurrent registration of the same email.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
	)

	return user, nil
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetByID returns a user by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail returns a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// UpdateProfile changes the user's display name.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.repo.UpdateName(ctx, id, name); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// AddTeam records teamID in the user's team list.
func (s *Service) AddTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return s.repo.AddTeam(ctx, userID, teamID)
}

// RemoveTeam drops teamID from the user's team list.
func (s *Service) RemoveTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return s.repo.RemoveTeam(ctx, userID, teamID)
}

// RemoveTeamFromAll drops teamID from every user's team list.
func (s *Service) RemoveTeamFromAll(ctx context.Context, teamID uuid.UUID) (int64, error) {
	return s.repo.RemoveTeamFromAll(ctx, teamID)
}

// CalendarCredential returns the user's stored calendar credential.
func (s *Service) CalendarCredential(ctx context.Context, userID uuid.UUID) (*CalendarCredential, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	cred := user.Calendar
	return &cred, nil
}

// SaveCalendarCredential stores a calendar credential for the user.
// An empty refresh token keeps the previously stored one, since Google only
// returns it on the first consent.
func (s *Service) SaveCalendarCredential(ctx context.Context, userID uuid.UUID, cred CalendarCredential) error {
	if cred.RefreshToken == "" {
		existing, err := s.CalendarCredential(ctx, userID)
		if err != nil {
			return err
		}
		cred.RefreshToken = existing.RefreshToken
	}

	if err := s.repo.SaveCalendarCredential(ctx, userID, cred); err != nil {
		return err
	}

	s.logger.Debug("calendar credential saved", zap.String("user_id", userID.String()))
	return nil
}
