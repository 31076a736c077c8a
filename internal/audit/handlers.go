package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/guard"
	"github.com/rs/zerolog/log"
)

// HandleList handles GET /api/v1/orgs/{org_id}/audit
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
		handle, err := g.CheckOrg(ctx, userID, orgID, authz.ActionAuditRead)
		if err != nil {
			guard.WriteDenied(w, r, err, "Organization not found")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, _ = strconv.Atoi(raw)
		}

		reader := NewReader(pool)
		list, err := reader.ListByOrg(ctx, handle.OrgID, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit events")
			apperrors.WriteInternalError(w, r, "Failed to list audit events")
			return
		}
		if list == nil {
			list = []Event{}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, list)
	}
}
