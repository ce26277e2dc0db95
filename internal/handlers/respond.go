// ===============================
// internal/handlers/respond.go - Shared request and error helpers
// ===============================

package handlers

import (
	"net/http"
	"strconv"

	"freezybe/internal/middleware"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// respondError maps service errors onto HTTP status codes. Anything not
// recognised is logged and reported as a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": verr.Problems})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrAlreadySaved):
		c.JSON(http.StatusConflict, gin.H{"error": "Resource already saved"})
	case errors.Is(err, services.ErrApprovalRequired):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Account pending approval",
			"message": "Your plan is waiting for admin approval. Please send your payment screenshot via WhatsApp.",
		})
	case errors.Is(err, services.ErrInvalidPlan),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPhone),
		errors.Is(err, services.ErrUnsupportedFile),
		errors.Is(err, services.ErrPaymentNotRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.Cause(err).Error()})
	case errors.Is(err, services.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds 5MB"})
	case errors.Is(err, services.ErrUploadsDisabled), errors.Is(err, services.ErrImportDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errors.Cause(err).Error()})
	default:
		logger.Error(fallback, zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// pagination reads ?limit= and ?offset=, clamping bad values.
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
