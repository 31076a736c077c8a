package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrCommentNotFound is returned when a comment is not found
var ErrCommentNotFound = errors.New("comment not found")

// CreateComment adds a comment to a task.
func (s *Service) CreateComment(ctx context.Context, orgID, taskID, authorID uuid.UUID, content string) (*Comment, error) {
	if _, err := s.GetByID(ctx, orgID, taskID); err != nil {
		return nil, err
	}

	var comment Comment
	err := s.pool.QueryRow(ctx, `
		INSERT INTO task_comments (task_id, author_user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, task_id, author_user_id, content, created_at, updated_at
	`, taskID, authorID, content).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorUserID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

// GetComment retrieves a comment scoped to an organization.
func (s *Service) GetComment(ctx context.Context, orgID, commentID uuid.UUID) (*Comment, error) {
	var comment Comment
	err := s.pool.QueryRow(ctx, `
		SELECT c.id, c.task_id, c.author_user_id, c.content, c.created_at, c.updated_at
		FROM task_comments c
		INNER JOIN tasks t ON c.task_id = t.id
		INNER JOIN projects p ON t.project_id = p.id
		WHERE c.id = $1 AND p.org_id = $2
	`, commentID, orgID).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorUserID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

// ListComments retrieves a task's comments oldest first.
func (s *Service) ListComments(ctx context.Context, orgID, taskID uuid.UUID) ([]Comment, error) {
	if _, err := s.GetByID(ctx, orgID, taskID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, author_user_id, content, created_at, updated_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var comment Comment
		err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorUserID,
			&comment.Content,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}

	return comments, nil
}

// UpdateComment replaces a comment's content.
func (s *Service) UpdateComment(ctx context.Context, orgID, commentID uuid.UUID, content string) (*Comment, error) {
	var comment Comment
	err := s.pool.QueryRow(ctx, `
		UPDATE task_comments c
		SET content = $3, updated_at = NOW()
		FROM tasks t
		INNER JOIN projects p ON t.project_id = p.id
		WHERE c.id = $1 AND c.task_id = t.id AND p.org_id = $2
		RETURNING c.id, c.task_id, c.author_user_id, c.content, c.created_at, c.updated_at
	`, commentID, orgID, content).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorUserID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, orgID, commentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM task_comments c
		USING tasks t, projects p
		WHERE c.id = $1 AND c.task_id = t.id AND t.project_id = p.id AND p.org_id = $2
	`, commentID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}
