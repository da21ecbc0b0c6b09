package user

import (
	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Module errors.
var (
	ErrUserNotFound       = apperrors.NotFound("user_not_found", "user not found")
	ErrEmailAlreadyExists = apperrors.Conflict("email_already_registered", "email already registered")
	ErrInvalidCredentials = apperrors.Unauthorized("invalid_credentials", "invalid email or password")
	ErrInvalidEmail       = apperrors.Validation("invalid_email", "email address is malformed")
	ErrPasswordTooShort   = apperrors.Validation("password_too_short", "password must be at least 8 characters")
	ErrNameRequired       = apperrors.Validation("name_required", "name is required")
)
