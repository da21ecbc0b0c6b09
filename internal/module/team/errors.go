package team

import (
	apperrors "github.com/teamtask/server/internal/shared/errors"
)

// Team module errors.
var (
	ErrTeamNotFound         = apperrors.NotFound("team_not_found", "team not found")
	ErrMembershipNotFound   = apperrors.NotFound("member_not_found", "no membership for this email")
	ErrNotMember            = apperrors.Forbidden("not_a_member", "you are not a member of this team")
	ErrAdminRequired        = apperrors.Forbidden("admin_required", "team admin role required")
	ErrOnlyCreatorCanDelete = apperrors.Forbidden("only_creator_can_delete", "only the team creator can delete the team")
	ErrCannotRemoveCreator  = apperrors.Validation("cannot_remove_creator", "the team creator cannot be removed")
	ErrUnauthenticated      = apperrors.Unauthorized("unauthorized", "authentication required")
	ErrTeamNameRequired     = apperrors.Validation("team_name_required", "team name is required")
)
