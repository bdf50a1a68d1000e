package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentforge-backend/internal/generation"
	"github.com/yungbote/contentforge-backend/internal/platform/apierr"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/template"
	"github.com/yungbote/contentforge-backend/internal/workflow"
)

// respondErr maps domain errors onto HTTP statuses. Callers always get a
// structured body naming the failure, never a bare 500 string.
func respondErr(c *gin.Context, log *logger.Logger, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, gin.H{"error": ae.Error(), "code": ae.Code})
		return
	}
	var verr *template.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "missing_variables": verr.Missing})
		return
	}
	var ite *workflow.InvalidTransitionError
	if errors.As(err, &ite) {
		c.JSON(http.StatusConflict, gin.H{"error": ite.Error()})
		return
	}
	switch {
	case errors.Is(err, template.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, template.ErrDisabled), errors.Is(err, template.ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, generation.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		if log != nil {
			log.Error("request failed", "error", err.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// runErrorStatus maps a pipeline abort onto a status code without writing a
// body; Run keeps its structured result in the response.
func runErrorStatus(err error, log *logger.Logger) int {
	var verr *template.ValidationError
	var ite *workflow.InvalidTransitionError
	switch {
	case errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, template.ErrDisabled):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ite):
		return http.StatusConflict
	case errors.Is(err, generation.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		if log != nil {
			log.Error("pipeline run failed", "error", err.Error())
		}
		return http.StatusInternalServerError
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
