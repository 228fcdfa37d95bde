package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/adapters/primary/http/dto"
	"site-deploy-service/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Checked first: a partial failure also wraps the underlying IO error.
	case errors.Is(err, domain.ErrPartialFailure):
		log.WithError(err).Error("partial failure, manual reconciliation required")
		respondError(c, http.StatusInternalServerError, partialFailureMessage(err), dto.CodePartialFailure)

	case errors.Is(err, domain.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error(), dto.CodeValidation)

	case errors.Is(err, domain.ErrConflict):
		respondError(c, http.StatusConflict, err.Error(), dto.CodeConflict)

	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error(), dto.CodeNotFound)

	case errors.Is(err, domain.ErrNotAuthenticated):
		respondError(c, http.StatusForbidden, err.Error(), dto.CodeNotAuthenticated)

	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(c, http.StatusForbidden, err.Error(), dto.CodeInvalidCredentials)

	case errors.Is(err, domain.ErrIO):
		log.WithError(err).Error("storage failure")
		respondError(c, http.StatusInternalServerError, domain.ErrIO.Error(), dto.CodeIO)

	default:
		log.WithError(err).Error("unexpected error")
		respondError(c, http.StatusInternalServerError, "internal server error", dto.CodeUnexpected)
	}
}

// partialFailureMessage names what was committed and which step failed,
// leaving host paths to the log.
func partialFailureMessage(err error) string {
	var partial *domain.PartialFailureError
	if !errors.As(err, &partial) {
		return domain.ErrPartialFailure.Error()
	}
	return fmt.Sprintf("deployment %s version %s was saved but the %s failed", partial.DeploymentID, partial.Version, partial.Step)
}

func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, dto.ErrorResponse{Success: false, Error: message, Code: code})
}
