// ===============================
// internal/handlers/user.go - Profile, plan and preference endpoints
// ===============================

package handlers

import (
	"net/http"

	"freezybe/internal/access"
	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users           *services.UserService
	supportWhatsApp string
	logger          *zap.Logger
}

func NewUserHandler(users *services.UserService, supportWhatsApp string, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, supportWhatsApp: supportWhatsApp, logger: logger}
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdatePlan lets the user choose a plan. Paid plans come back pending
// with payment instructions.
func (h *UserHandler) UpdatePlan(c *gin.Context) {
	var req models.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is required"})
		return
	}

	change, err := h.users.UpdatePlan(c.Request.Context(), currentUserID(c), req.Plan)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update plan")
		return
	}

	response := gin.H{"change": change, "message": change.Message}
	if req.Plan.IsPaid() && h.supportWhatsApp != "" {
		response["whatsapp"] = h.supportWhatsApp
	}
	c.JSON(http.StatusOK, response)
}

func (h *UserHandler) UpdateNotificationPreferences(c *gin.Context) {
	var req services.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	prefs, err := h.users.UpdateNotificationPreferences(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update preferences")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *UserHandler) EnableBrowserNotifications(c *gin.Context) {
	prefs, err := h.users.EnableBrowserNotifications(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to enable notifications")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// FixDocument backfills missing fields on the caller's users row.
func (h *UserHandler) FixDocument(c *gin.Context) {
	result, err := h.users.FixUserDocument(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fix user document")
		return
	}
	c.JSON(http.StatusOK, result)
}

type planInfo struct {
	Plan     models.Plan          `json:"plan"`
	Limits   access.Limits        `json:"limits"`
	Approval string               `json:"approval"`
	Next     *access.UpgradeOffer `json:"next,omitempty"`
}

// Plans lists every plan with its limits.
func (h *UserHandler) Plans(c *gin.Context) {
	plans := []models.Plan{models.PlanFree, models.PlanPro, models.PlanEnterprise}
	out := make([]planInfo, 0, len(plans))
	for _, p := range plans {
		info := planInfo{Plan: p, Limits: access.LimitsFor(p), Approval: "immediate"}
		if p.IsPaid() {
			info.Approval = "admin"
		}
		if next, ok := access.NextPlan(p); ok {
			info.Next = &next
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"plans": out, "whatsapp": h.supportWhatsApp})
}
