package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxPageSize = 200

// Reader lists audit events for an organization.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// ListByOrg returns the organization's most recent audit events, newest first.
func (r *Reader) ListByOrg(ctx context.Context, orgID uuid.UUID, limit int) ([]Event, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, actor_user_id, action, meta, created_at
		FROM audit_events
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID,
			&event.OrgID,
			&event.ActorUserID,
			&event.Action,
			&event.Meta,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
