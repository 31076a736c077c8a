package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProjectNotFound is returned when a project is not found
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidStatus is returned for a status outside the known set
	ErrInvalidStatus = errors.New("invalid project status")
)

// Service provides project operations. Every query is bound to the
// organization id stamped on the caller's guard handle, so rows from other
// organizations are unreachable by construction.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new project service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// CreateParams contains parameters for creating a project.
type CreateParams struct {
	OrgID           uuid.UUID
	Name            string
	Description     string
	DueDate         *time.Time
	CreatedByUserID uuid.UUID
}

// Create creates a new project in ACTIVE status.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Project, error) {
	var project Project
	err := s.pool.QueryRow(ctx, `
		INSERT INTO projects (org_id, name, description, status, due_date, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, org_id, name, description, status, due_date, created_by_user_id, created_at, updated_at
	`, params.OrgID, params.Name, params.Description, StatusActive, params.DueDate, params.CreatedByUserID).Scan(
		&project.ID,
		&project.OrgID,
		&project.Name,
		&project.Description,
		&project.Status,
		&project.DueDate,
		&project.CreatedByUserID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &project, nil
}

// GetByID retrieves a project scoped to an organization.
func (s *Service) GetByID(ctx context.Context, orgID, projectID uuid.UUID) (*Project, error) {
	var project Project
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_id, name, description, status, due_date, created_by_user_id, created_at, updated_at
		FROM projects
		WHERE id = $1 AND org_id = $2
	`, projectID, orgID).Scan(
		&project.ID,
		&project.OrgID,
		&project.Name,
		&project.Description,
		&project.Status,
		&project.DueDate,
		&project.CreatedByUserID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListByOrg retrieves all projects in an organization, newest first.
func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, name, description, status, due_date, created_by_user_id, created_at, updated_at
		FROM projects
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var project Project
		err := rows.Scan(
			&project.ID,
			&project.OrgID,
			&project.Name,
			&project.Description,
			&project.Status,
			&project.DueDate,
			&project.CreatedByUserID,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// UpdateParams contains the fields an update may change. Nil pointers leave
// the stored value untouched.
type UpdateParams struct {
	Name        *string
	Description *string
	Status      *Status
	DueDate     *time.Time
	ClearDue    bool
}

// Update applies a partial update to a project scoped to an organization.
func (s *Service) Update(ctx context.Context, orgID, projectID uuid.UUID, params UpdateParams) (*Project, error) {
	if params.Status != nil && !ValidStatus(*params.Status) {
		return nil, ErrInvalidStatus
	}

	var project Project
	err := s.pool.QueryRow(ctx, `
		UPDATE projects
		SET name = COALESCE($3, name),
		    description = COALESCE($4, description),
		    status = COALESCE($5, status),
		    due_date = CASE WHEN $7 THEN NULL ELSE COALESCE($6, due_date) END,
		    updated_at = NOW()
		WHERE id = $1 AND org_id = $2
		RETURNING id, org_id, name, description, status, due_date, created_by_user_id, created_at, updated_at
	`, projectID, orgID, params.Name, params.Description, params.Status, params.DueDate, params.ClearDue).Scan(
		&project.ID,
		&project.OrgID,
		&project.Name,
		&project.Description,
		&project.Status,
		&project.DueDate,
		&project.CreatedByUserID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return &project, nil
}

// Delete removes a project and, through cascade, its tasks and comments.
func (s *Service) Delete(ctx context.Context, orgID, projectID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM projects
		WHERE id = $1 AND org_id = $2
	`, projectID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
