package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/events"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidStatus is returned for a status outside the known set
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPriority is returned for a priority outside the known set
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrAssigneeNotMember is returned when the assignee is not a member of
	// the organization
	ErrAssigneeNotMember = errors.New("assignee is not a member of the organization")
)

// Publisher accepts domain events for asynchronous webhook delivery.
type Publisher interface {
	Publish(event events.DomainEvent)
}

// Service provides task operations scoped to a guard-checked organization.
// Mutations emit domain events after the write commits; event delivery can
// never fail or roll back the mutation.
type Service struct {
	pool      *pgxpool.Pool
	publisher Publisher
}

// NewService creates a new task service
func NewService(pool *pgxpool.Pool, publisher Publisher) *Service {
	return &Service{pool: pool, publisher: publisher}
}

// CreateParams contains parameters for creating a task.
type CreateParams struct {
	OrgID          uuid.UUID
	ProjectID      uuid.UUID
	Title          string
	Description    string
	Priority       Priority
	AssigneeUserID uuid.NullUUID
	DueDate        *time.Time
}

// Create creates a task in TODO status at the end of the project's board.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Task, error) {
	if params.Priority == "" {
		params.Priority = PriorityMedium
	}
	if !ValidPriority(params.Priority) {
		return nil, ErrInvalidPriority
	}

	if err := s.verifyProject(ctx, params.OrgID, params.ProjectID); err != nil {
		return nil, err
	}
	if params.AssigneeUserID.Valid {
		if err := s.verifyAssignee(ctx, params.OrgID, params.AssigneeUserID.UUID); err != nil {
			return nil, err
		}
	}

	var task Task
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (project_id, title, description, priority, assignee_user_id, due_date, position)
		VALUES ($1, $2, $3, $4, $5, $6,
		        (SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE project_id = $1))
		RETURNING id, project_id, title, description, status, priority, assignee_user_id, due_date, position, created_at, updated_at
	`, params.ProjectID, params.Title, params.Description, params.Priority, params.AssigneeUserID, params.DueDate).Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.AssigneeUserID,
		&task.DueDate,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.emit(ctx, events.KindTaskCreated, params.OrgID, task.ID)

	return &task, nil
}

// GetByID retrieves a task scoped to an organization.
func (s *Service) GetByID(ctx context.Context, orgID, taskID uuid.UUID) (*Task, error) {
	var task Task
	err := s.pool.QueryRow(ctx, `
		SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority,
		       t.assignee_user_id, t.due_date, t.position, t.created_at, t.updated_at
		FROM tasks t
		INNER JOIN projects p ON t.project_id = p.id
		WHERE t.id = $1 AND p.org_id = $2
	`, taskID, orgID).Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.AssigneeUserID,
		&task.DueDate,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListByProject retrieves a project's tasks in board order.
func (s *Service) ListByProject(ctx context.Context, orgID, projectID uuid.UUID) ([]Task, error) {
	if err := s.verifyProject(ctx, orgID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, title, description, status, priority,
		       assignee_user_id, due_date, position, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
		ORDER BY position ASC, created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var task Task
		err := rows.Scan(
			&task.ID,
			&task.ProjectID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.AssigneeUserID,
			&task.DueDate,
			&task.Position,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// UpdateParams contains the fields an update may change. Nil pointers leave
// the stored value untouched.
type UpdateParams struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Assignee    *uuid.NullUUID
	DueDate     *time.Time
	ClearDue    bool
	Position    *int
}

// Update applies a partial update to a task scoped to an organization.
func (s *Service) Update(ctx context.Context, orgID, taskID uuid.UUID, params UpdateParams) (*Task, error) {
	if params.Status != nil && !ValidStatus(*params.Status) {
		return nil, ErrInvalidStatus
	}
	if params.Priority != nil && !ValidPriority(*params.Priority) {
		return nil, ErrInvalidPriority
	}
	if params.Assignee != nil && params.Assignee.Valid {
		if err := s.verifyAssignee(ctx, orgID, params.Assignee.UUID); err != nil {
			return nil, err
		}
	}

	setAssignee := params.Assignee != nil
	var assignee uuid.NullUUID
	if setAssignee {
		assignee = *params.Assignee
	}

	var task Task
	err := s.pool.QueryRow(ctx, `
		UPDATE tasks t
		SET title = COALESCE($3, t.title),
		    description = COALESCE($4, t.description),
		    status = COALESCE($5, t.status),
		    priority = COALESCE($6, t.priority),
		    assignee_user_id = CASE WHEN $7 THEN $8 ELSE t.assignee_user_id END,
		    due_date = CASE WHEN $10 THEN NULL ELSE COALESCE($9, t.due_date) END,
		    position = COALESCE($11, t.position),
		    updated_at = NOW()
		FROM projects p
		WHERE t.id = $1 AND t.project_id = p.id AND p.org_id = $2
		RETURNING t.id, t.project_id, t.title, t.description, t.status, t.priority,
		          t.assignee_user_id, t.due_date, t.position, t.created_at, t.updated_at
	`, taskID, orgID, params.Title, params.Description, params.Status, params.Priority,
		setAssignee, assignee, params.DueDate, params.ClearDue, params.Position).Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.AssigneeUserID,
		&task.DueDate,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.emit(ctx, events.KindTaskUpdated, orgID, task.ID)

	return &task, nil
}

// Delete removes a task. The deletion event carries the task's final state,
// captured before the row disappears.
func (s *Service) Delete(ctx context.Context, orgID, taskID uuid.UUID) error {
	snapshot, err := s.snapshot(ctx, orgID, taskID)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tasks t
		USING projects p
		WHERE t.id = $1 AND t.project_id = p.id AND p.org_id = $2
	`, taskID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	if s.publisher != nil {
		s.publisher.Publish(events.DomainEvent{
			Kind:       events.KindTaskDeleted,
			OrgID:      orgID,
			OccurredAt: time.Now().UTC(),
			Data:       snapshot,
		})
	}

	return nil
}

// verifyProject checks that the project belongs to the organization.
func (s *Service) verifyProject(ctx context.Context, orgID, projectID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND org_id = $2)
	`, projectID, orgID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to verify project: %w", err)
	}
	if !exists {
		return ErrTaskNotFound
	}
	return nil
}

// verifyAssignee checks that the user is a member of the organization.
func (s *Service) verifyAssignee(ctx context.Context, orgID, userID uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM org_memberships WHERE org_id = $1 AND user_id = $2)
	`, orgID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	if !exists {
		return ErrAssigneeNotMember
	}
	return nil
}

// emit loads a fresh snapshot of the task and publishes it. The mutation has
// already committed, so a failed snapshot drops the event; log it like any
// other delivery failure.
func (s *Service) emit(ctx context.Context, kind events.Kind, orgID, taskID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	data, err := s.snapshot(ctx, orgID, taskID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", string(kind)).
			Str("org_id", orgID.String()).
			Str("task_id", taskID.String()).
			Msg("Failed to snapshot task for event")
		return
	}
	s.publisher.Publish(events.DomainEvent{
		Kind:       kind,
		OrgID:      orgID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}

// snapshot builds the event payload data for a task: the task's headline
// fields plus its project and assignee denormalized for subscribers.
func (s *Service) snapshot(ctx context.Context, orgID, taskID uuid.UUID) (map[string]interface{}, error) {
	var (
		id          uuid.UUID
		title       string
		status      Status
		priority    Priority
		projectID   uuid.UUID
		projectName string
		assignee    *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT t.id, t.title, t.status, t.priority, p.id, p.name, u.email
		FROM tasks t
		INNER JOIN projects p ON t.project_id = p.id
		LEFT JOIN users u ON t.assignee_user_id = u.id
		WHERE t.id = $1 AND p.org_id = $2
	`, taskID, orgID).Scan(&id, &title, &status, &priority, &projectID, &projectName, &assignee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to snapshot task: %w", err)
	}

	data := map[string]interface{}{
		"id":       id.String(),
		"title":    title,
		"status":   string(status),
		"priority": string(priority),
		"project": map[string]interface{}{
			"id":   projectID.String(),
			"name": projectName,
		},
	}
	if assignee != nil {
		data["assignee"] = *assignee
	} else {
		data["assignee"] = nil
	}
	return data, nil
}
