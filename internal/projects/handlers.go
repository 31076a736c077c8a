package projects

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

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

type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/projects
func HandleCreate(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if err := validation.ValidateName(req.Name); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		g := guard.New(pool, table)
		handle, err := g.CheckOrg(ctx, userID, orgID, authz.ActionProjectCreate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool)
		project, err := service.Create(ctx, CreateParams{
			OrgID:           handle.OrgID,
			Name:            strings.TrimSpace(req.Name),
			Description:     strings.TrimSpace(req.Description),
			DueDate:         req.DueDate,
			CreatedByUserID: handle.ActorID,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create project")
			apperrors.WriteInternalError(w, r, "Failed to create project")
			return
		}

		if err := auditor.LogProjectCreated(ctx, handle.OrgID, handle.ActorID, project.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, project)
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/projects
func HandleList(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.CheckOrg(ctx, userID, orgID, authz.ActionProjectRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool)
		list, err := service.ListByOrg(ctx, handle.OrgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list projects")
			apperrors.WriteInternalError(w, r, "Failed to list projects")
			return
		}
		if list == nil {
			list = []Project{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleGet handles GET /api/v1/projects/{project_id}
func HandleGet(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Project not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindProject, ID: projectID}, authz.ActionProjectRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Project not found")
			return
		}

		service := NewService(pool)
		project, err := service.GetByID(ctx, handle.OrgID, projectID)
		if err != nil {
			if errors.Is(err, ErrProjectNotFound) {
				apperrors.WriteNotFound(w, r, "Project not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get project")
			apperrors.WriteInternalError(w, r, "Failed to get project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, project)
	}
}

// HandleUpdate handles PUT /api/v1/projects/{project_id}
func HandleUpdate(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Project not found")
			return
		}

		var req UpdateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Name != nil {
			if err := validation.ValidateName(*req.Name); err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindProject, ID: projectID}, authz.ActionProjectUpdate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Project not found")
			return
		}

		service := NewService(pool)
		project, err := service.Update(ctx, handle.OrgID, projectID, UpdateParams{
			Name:        req.Name,
			Description: req.Description,
			Status:      req.Status,
			DueDate:     req.DueDate,
			ClearDue:    req.ClearDue,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidStatus):
				apperrors.WriteBadRequest(w, r, "Invalid project status")
			case errors.Is(err, ErrProjectNotFound):
				apperrors.WriteNotFound(w, r, "Project not found")
			default:
				log.Error().Err(err).Msg("Failed to update project")
				apperrors.WriteInternalError(w, r, "Failed to update project")
			}
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, project)
	}
}

// HandleDelete handles DELETE /api/v1/projects/{project_id}
func HandleDelete(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Project not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindProject, ID: projectID}, authz.ActionProjectDelete)
		if err != nil {
			guard.WriteDenied(w, r, err, "Project not found")
			return
		}

		service := NewService(pool)
		if err := service.Delete(ctx, handle.OrgID, projectID); err != nil {
			if errors.Is(err, ErrProjectNotFound) {
				apperrors.WriteNotFound(w, r, "Project not found")
				return
			}
			log.Error().Err(err).Msg("Failed to delete project")
			apperrors.WriteInternalError(w, r, "Failed to delete project")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
