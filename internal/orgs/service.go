package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/authz"
)

var (
	// ErrOrgNotFound is returned when an organization is not found
	ErrOrgNotFound = errors.New("organization not found")

	// ErrSlugConflict is returned when an organization slug already exists
	ErrSlugConflict = errors.New("organization slug already exists")

	// ErrMemberNotFound is returned when the target user is not a member
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidOrgRole is returned for a role outside the known set
	ErrInvalidOrgRole = errors.New("invalid organization role")
)

// Service provides organization and membership operations. Member mutations
// run their authorization decision inside the mutating transaction so the
// Engine always sees current membership state.
type Service struct {
	pool  *pgxpool.Pool
	table authz.PrivilegeTable
}

// NewService creates a new organization service
func NewService(pool *pgxpool.Pool, table authz.PrivilegeTable) *Service {
	return &Service{pool: pool, table: table}
}

// GetByID retrieves an organization by ID
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	var org Org

	query := `
		SELECT id, name, slug, uid, contact_email, created_by_user_id, created_at, updated_at
		FROM orgs
		WHERE id = $1
	`

	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.UID,
		&org.ContactEmail,
		&org.CreatedByUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// ListUserOrgs retrieves all organizations for a user with their roles
func (s *Service) ListUserOrgs(ctx context.Context, userID uuid.UUID) ([]OrgWithRole, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.uid, o.contact_email, o.created_by_user_id,
		       o.created_at, o.updated_at, m.role
		FROM orgs o
		INNER JOIN org_memberships m ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orgs: %w", err)
	}
	defer rows.Close()

	var orgs []OrgWithRole
	for rows.Next() {
		var org OrgWithRole
		err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.Slug,
			&org.UID,
			&org.ContactEmail,
			&org.CreatedByUserID,
			&org.CreatedAt,
			&org.UpdatedAt,
			&org.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating org rows: %w", err)
	}

	return orgs, nil
}

// CreateWithOwner creates a new organization with a freshly generated UID and
// makes the user its OWNER, in a single transaction. Every organization has
// exactly one OWNER at creation.
func (s *Service) CreateWithOwner(ctx context.Context, name, slug, contactEmail string, userID uuid.UUID) (*Org, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var org Org
	for attempt := 0; attempt < 3; attempt++ {
		uid, err := GenerateOrgUID()
		if err != nil {
			return nil, err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO orgs (name, slug, uid, contact_email, created_by_user_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, name, slug, uid, contact_email, created_by_user_id, created_at, updated_at
		`, name, slug, uid, contactEmail, userID).Scan(
			&org.ID,
			&org.Name,
			&org.Slug,
			&org.UID,
			&org.ContactEmail,
			&org.CreatedByUserID,
			&org.CreatedAt,
			&org.UpdatedAt,
		)
		if err == nil {
			break
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			if pgErr.ConstraintName == "orgs_uid_key" {
				// UID collision; retry with a fresh one.
				continue
			}
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	if org.ID == uuid.Nil {
		return nil, fmt.Errorf("failed to create organization: uid collision retry exhausted")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
	`, org.ID, userID, authz.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, nil
}

// JoinByUID creates a MEMBER membership for the user in the organization
// matching the join credential. Joining an organization the user already
// belongs to leaves the existing membership (and role) unchanged.
func (s *Service) JoinByUID(ctx context.Context, uid string, userID uuid.UUID) (*Org, authz.Role, error) {
	if !ValidateOrgUIDFormat(uid) {
		return nil, "", ErrOrgNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var org Org
	err = tx.QueryRow(ctx, `
		SELECT id, name, slug, uid, contact_email, created_by_user_id, created_at, updated_at
		FROM orgs
		WHERE uid = $1
	`, uid).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.UID,
		&org.ContactEmail,
		&org.CreatedByUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrOrgNotFound
		}
		return nil, "", fmt.Errorf("failed to look up organization: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO org_memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, user_id) DO NOTHING
	`, org.ID, userID, authz.RoleMember)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create membership: %w", err)
	}

	var finalRole authz.Role
	if err := tx.QueryRow(ctx, `
		SELECT role
		FROM org_memberships
		WHERE org_id = $1 AND user_id = $2
	`, org.ID, userID).Scan(&finalRole); err != nil {
		return nil, "", fmt.Errorf("failed to load membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, finalRole, nil
}

// ListMembers retrieves all members of an organization
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]MemberInfo, error) {
	query := `
		SELECT m.user_id, u.email, u.full_name, m.role, m.created_at
		FROM org_memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.org_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []MemberInfo
	for rows.Next() {
		var member MemberInfo
		err := rows.Scan(
			&member.UserID,
			&member.Email,
			&member.FullName,
			&member.Role,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// roleOf reads a membership role through any querier (pool or transaction).
func roleOf(ctx context.Context, q querier, userID, orgID uuid.UUID) (authz.Role, error) {
	var role authz.Role
	err := q.QueryRow(ctx, `
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

// querier is the subset of pgx query methods shared by pools and transactions.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
