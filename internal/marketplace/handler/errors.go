package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// respondError translates service-layer errors into HTTP responses.
// Validation failures carry their field, step failures carry the step the
// caller must return to, and conflicts mean the caller is already onboarded.
// Anything else is an upstream failure: 500 with the message passed through
// for operator visibility.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
		return
	}

	var serr *service.StepError
	if errors.As(err, &serr) {
		c.JSON(http.StatusConflict, gin.H{"error": serr.Error(), "step": string(serr.Step)})
		return
	}

	switch {
	case errors.Is(err, repository.ErrProfileExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already onboarded"})
	case errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrServiceNotFound),
		errors.Is(err, repository.ErrPublicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotProvider), errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
