package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/authz"
)

// pgResolver resolves resource ownership from the database. Tasks and
// comments own no organization column; ownership is transitive through the
// project.
type pgResolver struct {
	pool *pgxpool.Pool
}

func (r pgResolver) OwnerOrg(ctx context.Context, ref Ref) (uuid.UUID, error) {
	var query string
	switch ref.Kind {
	case KindProject:
		query = `SELECT org_id FROM projects WHERE id = $1`
	case KindTask:
		query = `
			SELECT p.org_id
			FROM tasks t
			INNER JOIN projects p ON t.project_id = p.id
			WHERE t.id = $1
		`
	case KindComment:
		query = `
			SELECT p.org_id
			FROM task_comments c
			INNER JOIN tasks t ON c.task_id = t.id
			INNER JOIN projects p ON t.project_id = p.id
			WHERE c.id = $1
		`
	case KindWebhook:
		query = `SELECT org_id FROM webhooks WHERE id = $1`
	default:
		return uuid.Nil, fmt.Errorf("unknown resource kind: %s", ref.Kind)
	}

	var orgID uuid.UUID
	err := r.pool.QueryRow(ctx, query, ref.ID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve owner org: %w", err)
	}

	return orgID, nil
}

// pgMembers reads membership facts for the Engine. Reads hit the database on
// every decision so role changes and removals take effect immediately.
type pgMembers struct {
	pool *pgxpool.Pool
}

func (m pgMembers) RoleOf(ctx context.Context, userID, orgID uuid.UUID) (authz.Role, error) {
	var role authz.Role
	err := m.pool.QueryRow(ctx, `
		SELECT role FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", authz.ErrNotAMember
		}
		return "", fmt.Errorf("failed to read membership: %w", err)
	}
	return role, nil
}

func (m pgMembers) CountOwners(ctx context.Context, orgID, excludeUserID uuid.UUID) (int, error) {
	var count int
	err := m.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM org_memberships
		WHERE org_id = $1 AND role = $2 AND user_id <> $3
	`, orgID, authz.RoleOwner, excludeUserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}
