package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeMembers is an in-memory MembershipReader for engine tests.
type fakeMembers struct {
	roles  map[uuid.UUID]map[uuid.UUID]Role // orgID -> userID -> role
	owners map[uuid.UUID][]uuid.UUID        // orgID -> owner user IDs
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{
		roles:  make(map[uuid.UUID]map[uuid.UUID]Role),
		owners: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeMembers) add(orgID, userID uuid.UUID, role Role) {
	if f.roles[orgID] == nil {
		f.roles[orgID] = make(map[uuid.UUID]Role)
	}
	f.roles[orgID][userID] = role
	if role == RoleOwner {
		f.owners[orgID] = append(f.owners[orgID], userID)
	}
}

func (f *fakeMembers) RoleOf(_ context.Context, userID, orgID uuid.UUID) (Role, error) {
	role, ok := f.roles[orgID][userID]
	if !ok {
		return "", ErrNotAMember
	}
	return role, nil
}

func (f *fakeMembers) CountOwners(_ context.Context, orgID, excludeUserID uuid.UUID) (int, error) {
	count := 0
	for _, id := range f.owners[orgID] {
		if id != excludeUserID {
			count++
		}
	}
	return count, nil
}

func TestDecide_MatchesPrivilegeTable(t *testing.T) {
	table := DefaultPrivileges()
	roles := []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}

	for action, required := range table {
		for _, role := range roles {
			members := newFakeMembers()
			orgID := uuid.New()
			actorID := uuid.New()
			members.add(orgID, actorID, role)

			engine := NewEngine(table, members)
			decision, err := engine.Decide(context.Background(), actorID, orgID, action)
			require.NoError(t, err)

			if role.AtLeast(required) {
				require.True(t, decision.Allowed, "%s should allow %s", role, action)
				require.Equal(t, role, decision.Role)
				require.NoError(t, decision.Err())
			} else {
				require.False(t, decision.Allowed, "%s should deny %s", role, action)
				require.Equal(t, ReasonInsufficientRole, decision.Reason)
				require.ErrorIs(t, decision.Err(), ErrInsufficientRole)
			}
		}
	}
}

func TestDecide_NonMemberDenied(t *testing.T) {
	members := newFakeMembers()
	orgID := uuid.New()
	members.add(orgID, uuid.New(), RoleOwner)

	engine := NewEngine(DefaultPrivileges(), members)
	decision, err := engine.Decide(context.Background(), uuid.New(), orgID, ActionProjectRead)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonNotAMember, decision.Reason)
	require.ErrorIs(t, decision.Err(), ErrNotAMember)
}

func TestDecide_UnknownActionPanics(t *testing.T) {
	engine := NewEngine(DefaultPrivileges(), newFakeMembers())
	require.Panics(t, func() {
		_, _ = engine.Decide(context.Background(), uuid.New(), uuid.New(), Action("bogus.action"))
	})
}

func TestDecideMemberChange_LastOwnerProtected(t *testing.T) {
	members := newFakeMembers()
	orgID := uuid.New()
	owner := uuid.New()
	members.add(orgID, owner, RoleOwner)

	engine := NewEngine(DefaultPrivileges(), members)

	// Even the owner themselves cannot demote the last owner.
	decision, err := engine.DecideMemberChange(context.Background(), owner, orgID, owner, ActionMemberChangeRole, RoleAdmin)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonLastOwnerProtected, decision.Reason)
	require.ErrorIs(t, decision.Err(), ErrLastOwnerProtected)

	decision, err = engine.DecideMemberChange(context.Background(), owner, orgID, owner, ActionMemberRemove, "")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonLastOwnerProtected, decision.Reason)
}

func TestDecideMemberChange_SecondOwnerAllowsDemotion(t *testing.T) {
	members := newFakeMembers()
	orgID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	members.add(orgID, first, RoleOwner)
	members.add(orgID, second, RoleOwner)

	engine := NewEngine(DefaultPrivileges(), members)

	decision, err := engine.DecideMemberChange(context.Background(), first, orgID, second, ActionMemberChangeRole, RoleAdmin)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = engine.DecideMemberChange(context.Background(), first, orgID, second, ActionMemberRemove, "")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestDecideMemberChange_PromotionSkipsOwnerCount(t *testing.T) {
	members := newFakeMembers()
	orgID := uuid.New()
	owner := uuid.New()
	member := uuid.New()
	members.add(orgID, owner, RoleOwner)
	members.add(orgID, member, RoleMember)

	engine := NewEngine(DefaultPrivileges(), members)

	// Promoting a member to OWNER never trips the last-owner rule.
	decision, err := engine.DecideMemberChange(context.Background(), owner, orgID, member, ActionMemberChangeRole, RoleOwner)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestDecideMemberChange_RequiresOwnerForRoleChange(t *testing.T) {
	members := newFakeMembers()
	orgID := uuid.New()
	admin := uuid.New()
	target := uuid.New()
	members.add(orgID, uuid.New(), RoleOwner)
	members.add(orgID, admin, RoleAdmin)
	members.add(orgID, target, RoleMember)

	engine := NewEngine(DefaultPrivileges(), members)

	decision, err := engine.DecideMemberChange(context.Background(), admin, orgID, target, ActionMemberChangeRole, RoleViewer)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficientRole, decision.Reason)
}

func TestRole_Ordering(t *testing.T) {
	require.True(t, RoleOwner.AtLeast(RoleAdmin))
	require.True(t, RoleAdmin.AtLeast(RoleMember))
	require.True(t, RoleMember.AtLeast(RoleViewer))
	require.True(t, RoleViewer.AtLeast(RoleViewer))
	require.False(t, RoleViewer.AtLeast(RoleMember))
	require.False(t, RoleMember.AtLeast(RoleAdmin))
	require.False(t, RoleAdmin.AtLeast(RoleOwner))
	require.False(t, Role("BOGUS").IsValid())
	require.True(t, RoleOwner.CanMutate())
	require.True(t, RoleAdmin.CanMutate())
	require.False(t, RoleMember.CanMutate())
}
