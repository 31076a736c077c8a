package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotAMember is returned when the actor holds no membership in the organization
	ErrNotAMember = errors.New("user is not a member of this organization")

	// ErrInsufficientRole is returned when the actor's role is below the required role
	ErrInsufficientRole = errors.New("insufficient role")

	// ErrLastOwnerProtected is returned when an operation would leave an organization without an owner
	ErrLastOwnerProtected = errors.New("organization must retain at least one owner")
)

// DenyReason explains why a decision denied the action.
type DenyReason string

const (
	ReasonNotAMember         DenyReason = "not_a_member"
	ReasonInsufficientRole   DenyReason = "insufficient_role"
	ReasonLastOwnerProtected DenyReason = "last_owner_protected"
)

// MembershipReader reads membership facts. Implementations must hit current
// state on every call; the Engine relies on fresh reads to close the window
// between a role change and a guarded write.
type MembershipReader interface {
	// RoleOf returns the user's role in the organization, or ErrNotAMember.
	RoleOf(ctx context.Context, userID, orgID uuid.UUID) (Role, error)

	// CountOwners returns the number of OWNER memberships in the
	// organization, excluding the given user.
	CountOwners(ctx context.Context, orgID, excludeUserID uuid.UUID) (int, error)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Role is the actor's role when they are a member of the organization.
	Role   Role
	Reason DenyReason
}

// Err converts a denial into its taxonomy error. Returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNotAMember:
		return ErrNotAMember
	case ReasonInsufficientRole:
		return ErrInsufficientRole
	case ReasonLastOwnerProtected:
		return ErrLastOwnerProtected
	}
	return fmt.Errorf("denied: %s", d.Reason)
}

// Engine is the pure authorization decision function over the current
// membership state. It has no side effects.
type Engine struct {
	table   PrivilegeTable
	members MembershipReader
}

// NewEngine creates an Engine with the given privilege table and membership source.
func NewEngine(table PrivilegeTable, members MembershipReader) *Engine {
	return &Engine{table: table, members: members}
}

// Decide resolves the actor's membership in the organization and allows the
// action iff the actor's role meets the privilege table's minimum for it.
// An unknown action is a programmer error and panics.
func (e *Engine) Decide(ctx context.Context, actorID, orgID uuid.UUID, action Action) (Decision, error) {
	required, ok := e.table[action]
	if !ok {
		panic(fmt.Sprintf("authz: unknown action %q", action))
	}

	role, err := e.members.RoleOf(ctx, actorID, orgID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return Decision{Reason: ReasonNotAMember}, nil
		}
		return Decision{}, fmt.Errorf("failed to read membership: %w", err)
	}

	if !role.AtLeast(required) {
		return Decision{Role: role, Reason: ReasonInsufficientRole}, nil
	}

	return Decision{Allowed: true, Role: role}, nil
}

// DecideMemberChange checks a membership mutation (removal or role change)
// against the privilege table and the last-owner rule: an operation that
// would remove or demote the organization's sole OWNER is denied regardless
// of the actor's role. newRole is ignored for removals.
func (e *Engine) DecideMemberChange(ctx context.Context, actorID, orgID, targetID uuid.UUID, action Action, newRole Role) (Decision, error) {
	if action != ActionMemberRemove && action != ActionMemberChangeRole {
		panic(fmt.Sprintf("authz: %q is not a membership mutation", action))
	}

	decision, err := e.Decide(ctx, actorID, orgID, action)
	if err != nil || !decision.Allowed {
		return decision, err
	}

	demotes := action == ActionMemberRemove ||
		(action == ActionMemberChangeRole && newRole != RoleOwner)
	if demotes {
		owners, err := e.members.CountOwners(ctx, orgID, targetID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to count owners: %w", err)
		}
		// Zero owners besides the target means the target is the last one.
		if owners == 0 {
			return Decision{Role: decision.Role, Reason: ReasonLastOwnerProtected}, nil
		}
	}

	return decision, nil
}
