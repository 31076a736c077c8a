package orgs

import (
	"time"

	"github.com/google/uuid"
	"github.com/orgaflow/orgaflow/internal/authz"
)

// Org represents an organization, the tenant boundary of the system.
type Org struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	UID             string    `db:"uid" json:"uid"`
	ContactEmail    string    `db:"contact_email" json:"contact_email"`
	CreatedByUserID uuid.UUID `db:"created_by_user_id" json:"created_by_user_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Membership represents a user's membership in an organization
type Membership struct {
	OrgID     uuid.UUID  `db:"org_id" json:"org_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Role      authz.Role `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// OrgWithRole combines org information with the user's role
type OrgWithRole struct {
	Org
	Role authz.Role `db:"role" json:"role"`
}

// MemberInfo represents a member of an organization with their details
type MemberInfo struct {
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Email     string     `db:"email" json:"email"`
	FullName  string     `db:"full_name" json:"full_name"`
	Role      authz.Role `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
