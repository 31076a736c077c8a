package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/orgaflow/orgaflow/internal/authz"
)

// txMembershipReader reads membership facts inside an open transaction so a
// decision and the guarded write happen under one locking discipline. Owner
// rows are locked while counting to serialize concurrent demotions.
type txMembershipReader struct {
	tx pgx.Tx
}

func (r txMembershipReader) RoleOf(ctx context.Context, userID, orgID uuid.UUID) (authz.Role, error) {
	return roleOf(ctx, r.tx, userID, orgID)
}

func (r txMembershipReader) CountOwners(ctx context.Context, orgID, excludeUserID uuid.UUID) (int, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT user_id
		FROM org_memberships
		WHERE org_id = $1 AND role = $2
		FOR UPDATE
	`, orgID, authz.RoleOwner)
	if err != nil {
		return 0, fmt.Errorf("failed to lock owners: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return 0, fmt.Errorf("failed to scan owner: %w", err)
		}
		if userID != excludeUserID {
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to lock owners: %w", err)
	}
	return count, nil
}

// UpdateMemberRole changes a member's role. The Authorization Engine decides
// inside the same transaction as the write, so a concurrent demotion of the
// actor cannot slip through between decision and update.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, newRole authz.Role) (previousRole authz.Role, err error) {
	if !newRole.IsValid() {
		return "", ErrInvalidOrgRole
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	engine := authz.NewEngine(s.table, txMembershipReader{tx})
	decision, err := engine.DecideMemberChange(ctx, actorUserID, orgID, targetUserID, authz.ActionMemberChangeRole, newRole)
	if err != nil {
		return "", err
	}
	if derr := decision.Err(); derr != nil {
		return "", derr
	}

	var currentRole authz.Role
	if err := tx.QueryRow(ctx, `
		SELECT role
		FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
		FOR UPDATE
	`, orgID, targetUserID).Scan(&currentRole); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}
		return "", fmt.Errorf("failed to load member role: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE org_memberships
		SET role = $3, updated_at = NOW()
		WHERE org_id = $1 AND user_id = $2
	`, orgID, targetUserID, newRole); err != nil {
		return "", fmt.Errorf("failed to update member role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return currentRole, nil
}

// RemoveMember removes a member from an organization. The last-owner rule is
// enforced by the Engine inside the removal transaction.
func (s *Service) RemoveMember(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID) (removedRole authz.Role, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	engine := authz.NewEngine(s.table, txMembershipReader{tx})
	decision, err := engine.DecideMemberChange(ctx, actorUserID, orgID, targetUserID, authz.ActionMemberRemove, "")
	if err != nil {
		return "", err
	}
	if derr := decision.Err(); derr != nil {
		return "", derr
	}

	var targetRole authz.Role
	if err := tx.QueryRow(ctx, `
		SELECT role
		FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
		FOR UPDATE
	`, orgID, targetUserID).Scan(&targetRole); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrMemberNotFound
		}
		return "", fmt.Errorf("failed to load member role: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
	`, orgID, targetUserID)
	if err != nil {
		return "", fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrMemberNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return targetRole, nil
}
