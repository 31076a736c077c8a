package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/guard"
	"github.com/rs/zerolog/log"
)

const maxCommentLength = 10000

type CommentRequest struct {
	Content string `json:"content"`
}

// HandleCreateComment handles POST /api/v1/tasks/{task_id}/comments
func HandleCreateComment(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Task not found")
			return
		}

		content, ok := decodeComment(w, r)
		if !ok {
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindTask, ID: taskID}, authz.ActionCommentCreate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Task not found")
			return
		}

		service := NewService(pool, nil)
		comment, err := service.CreateComment(ctx, handle.OrgID, taskID, handle.ActorID, content)
		if err != nil {
			writeCommentError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, comment)
	}
}

// HandleListComments handles GET /api/v1/tasks/{task_id}/comments
func HandleListComments(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		taskID, err := uuid.Parse(chi.URLParam(r, "task_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Task not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindTask, ID: taskID}, authz.ActionCommentRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Task not found")
			return
		}

		service := NewService(pool, nil)
		comments, err := service.ListComments(ctx, handle.OrgID, taskID)
		if err != nil {
			writeCommentError(w, r, err)
			return
		}
		if comments == nil {
			comments = []Comment{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, comments)
	}
}

// HandleUpdateComment handles PUT /api/v1/comments/{comment_id}
func HandleUpdateComment(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Comment not found")
			return
		}

		content, ok := decodeComment(w, r)
		if !ok {
			return
		}

		service := NewService(pool, nil)
		handle, _, err := authorizeCommentMutation(ctx, pool, table, service, userID, commentID,
			authz.ActionCommentUpdateOwn, authz.ActionCommentUpdateAny)
		if err != nil {
			guard.WriteDenied(w, r, err, "Comment not found")
			return
		}

		updated, err := service.UpdateComment(ctx, handle.OrgID, commentID, content)
		if err != nil {
			writeCommentError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, updated)
	}
}

// HandleDeleteComment handles DELETE /api/v1/comments/{comment_id}
func HandleDeleteComment(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Comment not found")
			return
		}

		service := NewService(pool, nil)
		handle, _, err := authorizeCommentMutation(ctx, pool, table, service, userID, commentID,
			authz.ActionCommentDeleteOwn, authz.ActionCommentDeleteAny)
		if err != nil {
			guard.WriteDenied(w, r, err, "Comment not found")
			return
		}

		if err := service.DeleteComment(ctx, handle.OrgID, commentID); err != nil {
			writeCommentError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// authorizeCommentMutation picks the own-or-any variant of a comment action
// by authorship, then asks the Engine. Visibility is established first so a
// comment in a foreign organization is a plain not-found, never a hint.
func authorizeCommentMutation(
	ctx context.Context,
	pool *pgxpool.Pool,
	table authz.PrivilegeTable,
	service *Service,
	userID, commentID uuid.UUID,
	ownAction, anyAction authz.Action,
) (guard.Handle, *Comment, error) {
	g := guard.New(pool, table)

	handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindComment, ID: commentID}, authz.ActionCommentRead)
	if err != nil {
		return guard.Handle{}, nil, err
	}

	comment, err := service.GetComment(ctx, handle.OrgID, commentID)
	if err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return guard.Handle{}, nil, guard.ErrNotFound
		}
		return guard.Handle{}, nil, err
	}

	action := anyAction
	if comment.AuthorUserID == userID {
		action = ownAction
	}

	handle, err = g.CheckOrg(ctx, userID, handle.OrgID, action)
	if err != nil {
		return guard.Handle{}, nil, err
	}

	return handle, comment, nil
}

func writeCommentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCommentNotFound), errors.Is(err, ErrTaskNotFound):
		apperrors.WriteNotFound(w, r, "Comment not found")
	default:
		log.Error().Err(err).Msg("Comment operation failed")
		apperrors.WriteInternalError(w, r, "Comment operation failed")
	}
}

func decodeComment(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid request body")
		return "", false
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		apperrors.WriteBadRequest(w, r, "Comment content is required")
		return "", false
	}
	if len(content) > maxCommentLength {
		apperrors.WriteBadRequest(w, r, "Comment content is too long")
		return "", false
	}
	return content, true
}
