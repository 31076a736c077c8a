package webhooks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/audit"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/guard"
	"github.com/rs/zerolog/log"
)

type RegisterRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// RegisterResponse carries the plaintext secret. It appears here and on an
// explicit reveal; every other response masks it.
type RegisterResponse struct {
	SubscriptionInfo
	Secret string `json:"secret"`
}

type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// HandleRegister handles POST /api/v1/orgs/{org_id}/webhooks
func HandleRegister(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.CheckOrg(ctx, userID, orgID, authz.ActionWebhookCreate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool)
		sub, err := service.Register(ctx, handle.OrgID, strings.TrimSpace(req.URL), req.Events)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrInvalidEventKind), errors.Is(err, ErrNoEventKinds):
				apperrors.WriteBadRequest(w, r, err.Error())
			default:
				log.Error().Err(err).Msg("Failed to register webhook")
				apperrors.WriteInternalError(w, r, "Failed to register webhook")
			}
			return
		}

		if err := auditor.LogWebhookCreated(ctx, handle.OrgID, handle.ActorID, sub.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, RegisterResponse{
			SubscriptionInfo: sub.Info(),
			Secret:           sub.Secret,
		})
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/webhooks
func HandleList(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.CheckOrg(ctx, userID, orgID, authz.ActionWebhookRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		service := NewService(pool)
		subs, err := service.List(ctx, handle.OrgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list webhooks")
			apperrors.WriteInternalError(w, r, "Failed to list webhooks")
			return
		}

		infos := make([]SubscriptionInfo, 0, len(subs))
		for i := range subs {
			infos = append(infos, subs[i].Info())
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, infos)
	}
}

// HandleGet handles GET /api/v1/webhooks/{webhook_id}
func HandleGet(pool *pgxpool.Pool, table authz.PrivilegeTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		webhookID, ok := webhookParam(w, r)
		if !ok {
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindWebhook, ID: webhookID}, authz.ActionWebhookRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Webhook not found")
			return
		}

		service := NewService(pool)
		sub, err := service.GetByID(ctx, webhookID)
		if err != nil || sub.OrgID != handle.OrgID {
			writeWebhookError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, sub.Info())
	}
}

// HandleRevealSecret handles POST /api/v1/webhooks/{webhook_id}/reveal
func HandleRevealSecret(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		webhookID, ok := webhookParam(w, r)
		if !ok {
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindWebhook, ID: webhookID}, authz.ActionWebhookRevealSecret)
		if err != nil {
			guard.WriteDenied(w, r, err, "Webhook not found")
			return
		}

		service := NewService(pool)
		sub, err := service.GetByID(ctx, webhookID)
		if err != nil || sub.OrgID != handle.OrgID {
			writeWebhookError(w, r, err)
			return
		}

		// Reveals are always audit-logged; the secret itself never is.
		if err := auditor.LogWebhookRevealed(ctx, handle.OrgID, handle.ActorID, sub.ID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, RegisterResponse{
			SubscriptionInfo: sub.Info(),
			Secret:           sub.Secret,
		})
	}
}

// HandleSetActive handles PUT /api/v1/webhooks/{webhook_id}
func HandleSetActive(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		webhookID, ok := webhookParam(w, r)
		if !ok {
			return
		}

		var req SetActiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindWebhook, ID: webhookID}, authz.ActionWebhookUpdate)
		if err != nil {
			guard.WriteDenied(w, r, err, "Webhook not found")
			return
		}

		service := NewService(pool)
		if err := service.SetActive(ctx, webhookID, req.IsActive); err != nil {
			writeWebhookError(w, r, err)
			return
		}

		if err := auditor.LogWebhookToggled(ctx, handle.OrgID, handle.ActorID, webhookID, req.IsActive); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		sub, err := service.GetByID(ctx, webhookID)
		if err != nil {
			writeWebhookError(w, r, err)
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, sub.Info())
	}
}

// HandleDelete handles DELETE /api/v1/webhooks/{webhook_id}
func HandleDelete(pool *pgxpool.Pool, table authz.PrivilegeTable, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		webhookID, ok := webhookParam(w, r)
		if !ok {
			return
		}

		g := guard.New(pool, table)
		handle, err := g.Check(ctx, userID, guard.Ref{Kind: guard.KindWebhook, ID: webhookID}, authz.ActionWebhookDelete)
		if err != nil {
			guard.WriteDenied(w, r, err, "Webhook not found")
			return
		}

		service := NewService(pool)
		if err := service.Delete(ctx, webhookID); err != nil {
			writeWebhookError(w, r, err)
			return
		}

		if err := auditor.LogWebhookDeleted(ctx, handle.OrgID, handle.ActorID, webhookID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func webhookParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	webhookID, err := uuid.Parse(chi.URLParam(r, "webhook_id"))
	if err != nil {
		apperrors.WriteNotFound(w, r, "Webhook not found")
		return uuid.Nil, false
	}
	return webhookID, true
}

func writeWebhookError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil || errors.Is(err, ErrSubscriptionNotFound) {
		apperrors.WriteNotFound(w, r, "Webhook not found")
		return
	}
	log.Error().Err(err).Msg("Webhook operation failed")
	apperrors.WriteInternalError(w, r, "Webhook operation failed")
}
