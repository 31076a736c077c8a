package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	EventUserSignup           = "user.signup"
	EventLoginFailed          = "auth.login_failed"
	EventOrgCreated           = "org.created"
	EventOrgJoined            = "org.joined"
	EventOrgMemberRoleUpdated = "org.member_role_updated"
	EventOrgMemberRemoved     = "org.member_removed"
	EventProjectCreated       = "project.created"
	EventWebhookCreated       = "webhook.created"
	EventWebhookDeleted       = "webhook.deleted"
	EventWebhookToggled       = "webhook.toggled"
	EventWebhookRevealed      = "webhook.secret_revealed"
)

// Event represents an audit log entry.
type Event struct {
	ID          uuid.UUID              `db:"id" json:"id"`
	OrgID       uuid.NullUUID          `db:"org_id" json:"org_id"`
	ActorUserID uuid.NullUUID          `db:"actor_user_id" json:"actor_user_id"`
	Action      string                 `db:"action" json:"action"`
	Meta        map[string]interface{} `db:"meta" json:"meta"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	OrgID       *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

func (w *Writer) Log(ctx context.Context, params LogParams) error {
	metaJSON := []byte("{}")
	if params.Meta != nil {
		encoded, err := json.Marshal(params.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal audit meta: %w", err)
		}
		metaJSON = encoded
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_events (org_id, actor_user_id, action, meta)
		VALUES ($1, $2, $3, $4)
	`, params.OrgID, params.ActorUserID, params.Action, metaJSON)
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	return nil
}

func (w *Writer) LogUserSignup(ctx context.Context, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{ActorUserID: &userID, Action: EventUserSignup})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta:   map[string]interface{}{"email": email},
	})
}

func (w *Writer) LogOrgCreated(ctx context.Context, orgID, actorUserID uuid.UUID) error {
	return w.Log(ctx, LogParams{OrgID: &orgID, ActorUserID: &actorUserID, Action: EventOrgCreated})
}

func (w *Writer) LogOrgJoined(ctx context.Context, orgID, actorUserID uuid.UUID, role string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventOrgJoined,
		Meta:        map[string]interface{}{"role": role},
	})
}

func (w *Writer) LogOrgMemberRoleUpdated(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, previousRole, newRole string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventOrgMemberRoleUpdated,
		Meta: map[string]interface{}{
			"target_user_id": targetUserID.String(),
			"previous_role":  previousRole,
			"new_role":       newRole,
		},
	})
}

func (w *Writer) LogOrgMemberRemoved(ctx context.Context, orgID, actorUserID, targetUserID uuid.UUID, removedRole string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventOrgMemberRemoved,
		Meta: map[string]interface{}{
			"target_user_id": targetUserID.String(),
			"removed_role":   removedRole,
		},
	})
}

func (w *Writer) LogProjectCreated(ctx context.Context, orgID, actorUserID, projectID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventProjectCreated,
		Meta:        map[string]interface{}{"project_id": projectID.String()},
	})
}

func (w *Writer) LogWebhookCreated(ctx context.Context, orgID, actorUserID, webhookID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventWebhookCreated,
		Meta:        map[string]interface{}{"webhook_id": webhookID.String()},
	})
}

func (w *Writer) LogWebhookDeleted(ctx context.Context, orgID, actorUserID, webhookID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventWebhookDeleted,
		Meta:        map[string]interface{}{"webhook_id": webhookID.String()},
	})
}

func (w *Writer) LogWebhookToggled(ctx context.Context, orgID, actorUserID, webhookID uuid.UUID, active bool) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventWebhookToggled,
		Meta: map[string]interface{}{
			"webhook_id": webhookID.String(),
			"active":     active,
		},
	})
}

func (w *Writer) LogWebhookRevealed(ctx context.Context, orgID, actorUserID, webhookID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventWebhookRevealed,
		Meta:        map[string]interface{}{"webhook_id": webhookID.String()},
	})
}
