package tasks

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
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/guard"
	"github.com/orgaflow/orgaflow/internal/validation"
	"github.com/rs/zerolog/log"
)

type CreateTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority"`
	AssigneeUserID *uuid.UUID `json:"assignee_user_id"`
	DueDate        *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	Assignee    *uuid.UUID `json:"assignee_user_id"`
	ClearAssign bool       `json:"clear_assignee"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Position    *int       `json:"position"`
}

// HandleCreate handles POST /api/v1/projects/{project_id}/tasks
func HandleCreate(pool *pgxpool.Pool, table authz.PrivilegeTable, publisher Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Project not found")
			return
		}

		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if err := validation.ValidateName(req.Title); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindProject, ID: projectID}, authz.ActionTaskCreate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Project not found")
			return
		}

		var assignee uuid.NullUUID
		if req.AssigneeUserID != nil {
			assignee = uuid.NullUUID{UUID: *req.AssigneeUserID, Valid: true}
		}

		service := NewService(pool, publisher)
		task, err := service.Create(ctx, CreateParams{
			OrgID:          handle.OrgID,
			ProjectID:      projectID,
			Title:          strings.TrimSpace(req.Title),
			Description:    strings.TrimSpace(req.Description),
			Priority:       req.Priority,
			AssigneeUserID: assignee,
			DueDate:        req.DueDate,
		})
		if err != nil {
			writeTaskError(w, r, err, "Project not found")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, task)
	}
}

// HandleListByProject handles GET /api/v1/projects/{project_id}/tasks
func HandleListByProject(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		projectID, err := uuid.Parse(chi.URLParam(r, "project_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Project not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindProject, ID: projectID}, authz.ActionTaskRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Project not found")
			return
		}

		service := NewService(pool, nil)
		list, err := service.ListByProject(ctx, handle.OrgID, projectID)
		if err != nil {
			writeTaskError(w, r, err, "Project not found")
			return
		}
		if list == nil {
			list = []Task{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}

// HandleGet handles GET /api/v1/tasks/{task_id}
func HandleGet(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Task not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindTask, ID: taskID}, authz.ActionTaskRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Task not found")
			return
		}

		service := NewService(pool, nil)
		task, err := service.GetByID(ctx, handle.OrgID, taskID)
		if err != nil {
			writeTaskError(w, r, err, "Task not found")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, task)
	}
}

// HandleUpdate handles PUT /api/v1/tasks/{task_id}
func HandleUpdate(pool *pgxpool.Pool, table authz.PrivilegeTable, publisher Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Task not found")
			return
		}

		var req UpdateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.Title != nil {
			if err := validation.ValidateName(*req.Title); err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindTask, ID: taskID}, authz.ActionTaskUpdate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Task not found")
			return
		}

		var assignee *uuid.NullUUID
		if req.ClearAssign {
			assignee = &uuid.NullUUID{}
		} else if req.Assignee != nil {
			assignee = &uuid.NullUUID{UUID: *req.Assignee, Valid: true}
		}

		service := NewService(pool, publisher)
		task, err := service.Update(ctx, handle.OrgID, taskID, UpdateParams{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			Assignee:    assignee,
			DueDate:     req.DueDate,
			ClearDue:    req.ClearDue,
			Position:    req.Position,
		})
		if err != nil {
			writeTaskError(w, r, err, "Task not found")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, task)
	}
}

// HandleDelete handles DELETE /api/v1/tasks/{task_id}
func HandleDelete(pool *pgxpool.Pool, table authz.PrivilegeTable, publisher Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Task not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindTask, ID: taskID}, authz.ActionTaskDelete)
		if err != nil {
			guard.WriteDenied(w, r, err, "Task not found")
			return
		}

		service := NewService(pool, publisher)
		if err := service.Delete(ctx, handle.OrgID, taskID); err != nil {
			writeTaskError(w, r, err, "Task not found")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func writeTaskError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		apperrors.WriteNotFound(w, r, notFoundMsg)
	case errors.Is(err, ErrInvalidStatus):
		apperrors.WriteBadRequest(w, r, "Invalid task status")
	case errors.Is(err, ErrInvalidPriority):
		apperrors.WriteBadRequest(w, r, "Invalid task priority")
	case errors.Is(err, ErrAssigneeNotMember):
		apperrors.WriteBadRequest(w, r, "Assignee is not a member of the organization")
	default:
		log.Error().Err(err).Msg("Task operation failed")
		apperrors.WriteInternalError(w, r, "Task operation failed")
	}
}
