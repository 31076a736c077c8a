package authz

// Action identifies one operation from the closed per-resource action set.
type Action string

const (
	ActionProjectCreate Action = "project.create"
	ActionProjectRead   Action = "project.read"
	ActionProjectUpdate Action = "project.update"
	ActionProjectDelete Action = "project.delete"

	ActionTaskCreate Action = "task.create"
	ActionTaskRead   Action = "task.read"
	ActionTaskUpdate Action = "task.update"
	ActionTaskDelete Action = "task.delete"

	ActionCommentCreate Action = "comment.create"
	ActionCommentRead   Action = "comment.read"
	// Own-comment edits are MEMBER-level; touching another author's comment
	// is moderation and requires ADMIN.
	ActionCommentUpdateOwn Action = "comment.update.own"
	ActionCommentUpdateAny Action = "comment.update.any"
	ActionCommentDeleteOwn Action = "comment.delete.own"
	ActionCommentDeleteAny Action = "comment.delete.any"

	ActionOrgRead    Action = "org.read"
	ActionMemberList Action = "member.list"

	ActionMemberInvite     Action = "member.invite"
	ActionMemberRemove     Action = "member.remove"
	ActionMemberChangeRole Action = "member.change_role"

	ActionWebhookCreate       Action = "webhook.create"
	ActionWebhookRead         Action = "webhook.read"
	ActionWebhookUpdate       Action = "webhook.update"
	ActionWebhookDelete       Action = "webhook.delete"
	ActionWebhookRevealSecret Action = "webhook.reveal_secret"

	ActionAuditRead Action = "audit.read"
)

// PrivilegeTable maps each action to the minimum role required to perform it.
type PrivilegeTable map[Action]Role

// DefaultPrivileges returns the static privilege table. It is built once at
// process start and threaded explicitly into the Engine.
func DefaultPrivileges() PrivilegeTable {
	return PrivilegeTable{
		ActionProjectCreate: RoleAdmin,
		ActionProjectRead:   RoleViewer,
		ActionProjectUpdate: RoleAdmin,
		ActionProjectDelete: RoleAdmin,

		ActionTaskCreate: RoleMember,
		ActionTaskRead:   RoleViewer,
		ActionTaskUpdate: RoleMember,
		ActionTaskDelete: RoleMember,

		ActionCommentCreate:    RoleMember,
		ActionCommentRead:      RoleViewer,
		ActionCommentUpdateOwn: RoleMember,
		ActionCommentUpdateAny: RoleAdmin,
		ActionCommentDeleteOwn: RoleMember,
		ActionCommentDeleteAny: RoleAdmin,

		ActionOrgRead:    RoleViewer,
		ActionMemberList: RoleViewer,

		ActionMemberInvite:     RoleAdmin,
		ActionMemberRemove:     RoleAdmin,
		ActionMemberChangeRole: RoleOwner,

		ActionWebhookCreate:       RoleAdmin,
		ActionWebhookRead:         RoleAdmin,
		ActionWebhookUpdate:       RoleAdmin,
		ActionWebhookDelete:       RoleAdmin,
		ActionWebhookRevealSecret: RoleAdmin,

		ActionAuditRead: RoleAdmin,
	}
}
