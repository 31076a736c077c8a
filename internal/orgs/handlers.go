package orgs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/audit"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/guard"
	"github.com/orgaflow/orgaflow/internal/validation"
	"github.com/rs/zerolog/log"
)

type CreateOrgRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ContactEmail string `json:"contact_email"`
}

type JoinOrgRequest struct {
	UID string `json:"uid"`
}

type JoinOrgResponse struct {
	Org  Org        `json:"org"`
	Role authz.Role `json:"role"`
}

// HandleCreate handles POST /api/v1/orgs
func HandleCreate(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authUserID(r)

		var req CreateOrgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateName(req.Name); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}
		if err := validation.ValidateSlug(req.Slug); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool, table)
		org, err := service.CreateWithOwner(ctx,
			strings.TrimSpace(req.Name),
			validation.NormalizeSlug(req.Slug),
			strings.TrimSpace(req.ContactEmail),
			userID,
		)
		if err != nil {
			if errors.Is(err, ErrSlugConflict) {
				apperrors.WriteConflict(w, r, "Organization slug already exists")
				return
			}
			log.Error().Err(err).Msg("Failed to create organization")
			apperrors.WriteInternalError(w, r, "Failed to create organization")
			return
		}

		if err := auditor.LogOrgCreated(ctx, org.ID, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, org)
	}
}

// HandleList handles GET /api/v1/orgs
func HandleList(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authUserID(r)

		service := NewService(pool, table)
		list, err := service.ListUserOrgs(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			apperrors.WriteInternalError(w, r, "Failed to list organizations")
			return
		}
		if list == nil {
			list = []OrgWithRole{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleJoin handles POST /api/v1/orgs/join
func HandleJoin(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authUserID(r)

		var req JoinOrgRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool, table)
		org, role, err := service.JoinByUID(ctx, strings.TrimSpace(req.UID), userID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				// Malformed and unknown credentials are reported identically.
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to join organization")
			apperrors.WriteInternalError(w, r, "Failed to join organization")
			return
		}

		if err := auditor.LogOrgJoined(ctx, org.ID, userID, string(role)); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, JoinOrgResponse{Org: *org, Role: role})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}
func HandleGet(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authUserID(r)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		g := guard.New(pool, table)
		if _, err := g.CheckOrg(ctx, userID, orgID, authz.ActionOrgRead); err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool, table)
		org, err := service.GetByID(ctx, orgID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization")
			apperrors.WriteInternalError(w, r, "Failed to get organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, org)
	}
}

// HandleListMembers handles GET /api/v1/orgs/{org_id}/members
func HandleListMembers(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authUserID(r)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		g := guard.New(pool, table)
		if _, err := g.CheckOrg(ctx, userID, orgID, authz.ActionMemberList); err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool, table)
		members, err := service.ListMembers(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}
		if members == nil {
			members = []MemberInfo{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, members)
	}
}

func authUserID(r *http.Request) uuid.UUID {
	return auth.GetUserID(r.Context())
}
