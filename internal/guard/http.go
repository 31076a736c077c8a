package guard

import (
	"errors"
	"net/http"

	"github.com/orgaflow/orgaflow/internal/apperrors"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/rs/zerolog/log"
)

// WriteDenied maps a failed check to the API envelope. Not-found covers both
// resources that do not exist and resources the actor cannot see.
func WriteDenied(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		apperrors.WriteNotFound(w, r, notFoundMsg)
	case errors.Is(err, authz.ErrInsufficientRole):
		apperrors.WriteForbidden(w, r, "Your role does not permit this action")
	default:
		log.Error().Err(err).Msg("Authorization check failed")
		apperrors.WriteInternalError(w, r, "Authorization check failed")
	}
}
