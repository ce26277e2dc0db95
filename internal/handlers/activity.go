// ===============================
// internal/handlers/activity.go - Saved resources, view history and applications
// ===============================

package handlers

import (
	"net/http"
	"strconv"

	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activity      *services.ActivityService
	notifications *services.NotificationService
	logger        *zap.Logger
}

func NewActivityHandler(activity *services.ActivityService, notifications *services.NotificationService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, notifications: notifications, logger: logger}
}

// ===============================
// SAVED RESOURCES
// ===============================

func (h *ActivityHandler) GetSaved(c *gin.Context) {
	saved, err := h.activity.GetSaved(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get saved resources")
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved, "total": len(saved)})
}

func (h *ActivityHandler) Save(c *gin.Context) {
	var req models.SaveResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Resource id and title are required"})
		return
	}

	uid := currentUserID(c)
	saved, err := h.activity.Save(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to save resource")
		return
	}

	if h.notifications != nil {
		if _, err := h.notifications.Send(c.Request.Context(), uid, models.ResourceSavedTemplate(saved.Title)); err != nil {
			h.logger.Warn("failed to send saved notification", zap.String("uid", uid), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *ActivityHandler) RemoveSaved(c *gin.Context) {
	removed, err := h.activity.RemoveSaved(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to remove saved resource")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ===============================
// VIEW HISTORY
// ===============================

func (h *ActivityHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > models.MaxViewHistory {
		limit = models.MaxViewHistory
	}

	history, err := h.activity.GetViewHistory(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get view history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "total": len(history)})
}

func (h *ActivityHandler) ClearHistory(c *gin.Context) {
	if err := h.activity.ClearViewHistory(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, h.logger, err, "Failed to clear view history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "View history cleared"})
}

// ===============================
// APPLICATIONS
// ===============================

func (h *ActivityHandler) GetApplications(c *gin.Context) {
	applications, err := h.activity.GetApplications(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get applications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications, "total": len(applications)})
}

func (h *ActivityHandler) AddApplication(c *gin.Context) {
	var req models.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job title is required"})
		return
	}

	application, err := h.activity.AddApplication(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to add application")
		return
	}
	c.JSON(http.StatusCreated, application)
}

func (h *ActivityHandler) UpdateApplication(c *gin.Context) {
	var req models.UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	if err := h.activity.UpdateApplicationStatus(c.Request.Context(), currentUserID(c), c.Param("id"), req); err != nil {
		respondError(c, h.logger, err, "Failed to update application")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application updated"})
}

func (h *ActivityHandler) Stats(c *gin.Context) {
	stats, err := h.activity.Stats(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
