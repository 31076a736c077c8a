package orgs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/audit"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/rs/zerolog/log"
)

type UpdateMemberRoleRequest struct {
	Role authz.Role `json:"role"`
}

type MemberChangeResponse struct {
	UserID       uuid.UUID  `json:"user_id"`
	PreviousRole authz.Role `json:"previous_role"`
	Role         authz.Role `json:"role,omitempty"`
}

// HandleUpdateMemberRole handles PUT /api/v1/orgs/{org_id}/members/{user_id}
func HandleUpdateMemberRole(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := authUserID(r)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}
		targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Member not found")
			return
		}

		var req UpdateMemberRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool, table)
		previousRole, err := service.UpdateMemberRole(ctx, orgID, actorID, targetID, req.Role)
		if err != nil {
			writeMemberChangeError(w, r, err)
			return
		}

		if err := auditor.LogOrgMemberRoleUpdated(ctx, orgID, actorID, targetID, string(previousRole), string(req.Role)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, MemberChangeResponse{
			UserID:       targetID,
			PreviousRole: previousRole,
			Role:         req.Role,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/orgs/{org_id}/members/{user_id}
func HandleRemoveMember(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorID := authUserID(r)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}
		targetID, err := uuid.Parse(chi.URLParam(r, "user_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Member not found")
			return
		}

		service := NewService(pool, table)
		removedRole, err := service.RemoveMember(ctx, orgID, actorID, targetID)
		if err != nil {
			writeMemberChangeError(w, r, err)
			return
		}

		if err := auditor.LogOrgMemberRemoved(ctx, orgID, actorID, targetID, string(removedRole)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, MemberChangeResponse{
			UserID:       targetID,
			PreviousRole: removedRole,
		})
	}
}

func writeMemberChangeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrNotAMember):
		// Non-members see the same response as for a missing organization.
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, authz.ErrInsufficientRole):
		apperrors.WriteForbidden(w, r, "Your role does not permit this action")
	case errors.Is(err, authz.ErrLastOwnerProtected):
		apperrors.WriteConflict(w, r, "Organizations must keep at least one owner")
	case errors.Is(err, ErrMemberNotFound):
		apperrors.WriteNotFound(w, r, "Member not found")
	case errors.Is(err, ErrInvalidOrgRole):
		apperrors.WriteBadRequest(w, r, "Invalid role")
	default:
		log.Error().Err(err).Msg("Failed to change membership")
		apperrors.WriteInternalError(w, r, "Failed to change membership")
	}
}
