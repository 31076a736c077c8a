package guard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	roles map[uuid.UUID]map[uuid.UUID]authz.Role
}

func (f *fakeMembers) add(orgID, userID uuid.UUID, role authz.Role) {
	if f.roles == nil {
		f.roles = make(map[uuid.UUID]map[uuid.UUID]authz.Role)
	}
	if f.roles[orgID] == nil {
		f.roles[orgID] = make(map[uuid.UUID]authz.Role)
	}
	f.roles[orgID][userID] = role
}

func (f *fakeMembers) RoleOf(_ context.Context, userID, orgID uuid.UUID) (authz.Role, error) {
	role, ok := f.roles[orgID][userID]
	if !ok {
		return "", authz.ErrNotAMember
	}
	return role, nil
}

func (f *fakeMembers) CountOwners(_ context.Context, orgID, excludeUserID uuid.UUID) (int, error) {
	count := 0
	for userID, role := range f.roles[orgID] {
		if role == authz.RoleOwner && userID != excludeUserID {
			count++
		}
	}
	return count, nil
}

type fakeResolver struct {
	owners map[Ref]uuid.UUID
}

func (f *fakeResolver) OwnerOrg(_ context.Context, ref Ref) (uuid.UUID, error) {
	orgID, ok := f.owners[ref]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return orgID, nil
}

func newTestGuard() (*Guard, *fakeMembers, *fakeResolver) {
	members := &fakeMembers{}
	resolver := &fakeResolver{owners: make(map[Ref]uuid.UUID)}
	engine := authz.NewEngine(authz.DefaultPrivileges(), members)
	return NewWith(engine, resolver), members, resolver
}

func TestCheck_AllowedReturnsScopedHandle(t *testing.T) {
	g, members, resolver := newTestGuard()

	orgID := uuid.New()
	actorID := uuid.New()
	taskID := uuid.New()
	members.add(orgID, actorID, authz.RoleMember)
	resolver.owners[Ref{Kind: KindTask, ID: taskID}] = orgID

	handle, err := g.Check(context.Background(), actorID, Ref{Kind: KindTask, ID: taskID}, authz.ActionTaskUpdate)
	require.NoError(t, err)
	require.Equal(t, orgID, handle.OrgID)
	require.Equal(t, actorID, handle.ActorID)
	require.Equal(t, authz.RoleMember, handle.Role)
}

func TestCheck_NonMemberMatchesMissingResource(t *testing.T) {
	g, members, resolver := newTestGuard()

	orgID := uuid.New()
	outsider := uuid.New()
	projectID := uuid.New()
	members.add(orgID, uuid.New(), authz.RoleOwner)
	resolver.owners[Ref{Kind: KindProject, ID: projectID}] = orgID

	// A real resource in someone else's organization...
	_, errForeign := g.Check(context.Background(), outsider, Ref{Kind: KindProject, ID: projectID}, authz.ActionProjectRead)
	// ...and a resource that does not exist at all.
	_, errMissing := g.Check(context.Background(), outsider, Ref{Kind: KindProject, ID: uuid.New()}, authz.ActionProjectRead)

	require.ErrorIs(t, errForeign, ErrNotFound)
	require.ErrorIs(t, errMissing, ErrNotFound)
	require.Equal(t, errForeign.Error(), errMissing.Error())
}

func TestCheck_InsufficientRoleIsDistinct(t *testing.T) {
	g, members, resolver := newTestGuard()

	orgID := uuid.New()
	viewer := uuid.New()
	projectID := uuid.New()
	members.add(orgID, viewer, authz.RoleViewer)
	resolver.owners[Ref{Kind: KindProject, ID: projectID}] = orgID

	_, err := g.Check(context.Background(), viewer, Ref{Kind: KindProject, ID: projectID}, authz.ActionProjectUpdate)
	require.ErrorIs(t, err, authz.ErrInsufficientRole)
}

func TestCheckOrg_CreationRequiresMembership(t *testing.T) {
	g, members, _ := newTestGuard()

	orgID := uuid.New()
	admin := uuid.New()
	member := uuid.New()
	members.add(orgID, admin, authz.RoleAdmin)
	members.add(orgID, member, authz.RoleMember)

	handle, err := g.CheckOrg(context.Background(), admin, orgID, authz.ActionProjectCreate)
	require.NoError(t, err)
	require.Equal(t, orgID, handle.OrgID)
	require.Equal(t, authz.RoleAdmin, handle.Role)

	// MEMBER < ADMIN for project creation.
	_, err = g.CheckOrg(context.Background(), member, orgID, authz.ActionProjectCreate)
	require.ErrorIs(t, err, authz.ErrInsufficientRole)

	// Outsiders see nothing.
	_, err = g.CheckOrg(context.Background(), uuid.New(), orgID, authz.ActionProjectCreate)
	require.ErrorIs(t, err, ErrNotFound)
}
