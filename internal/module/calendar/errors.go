package calendar

import (
	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Calendar module errors.
var (
	ErrNoCredential        = apperrors.Validation("calendar_not_connected", "Google Calendar is not connected")
	ErrCalendarDisabled    = apperrors.Validation("calendar_disabled", "calendar integration is not configured")
	ErrInvalidState        = apperrors.Validation("invalid_oauth_state", "OAuth state is invalid or expired")
	ErrExchangeFailed      = apperrors.ExternalService("oauth_exchange_failed", "could not complete Google authorization")
	ErrCalendarUnavailable = apperrors.ExternalService("calendar_unavailable", "Google Calendar request failed")
)
