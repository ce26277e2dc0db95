// ===============================
// internal/handlers/auth.go - Registration, sign-in sync and logout
// ===============================

package handlers

import (
	"net/http"

	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   *services.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register creates the Firebase account and the pending users row.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	reg, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, reg)
}

// ResetPassword always answers 200 so registered addresses stay private.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email required"})
		return
	}

	_ = h.auth.ResetPassword(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{"message": "If an account exists for this email, a reset link has been sent."})
}

// SyncUser runs after every sign-in (password or Google) to create or
// repair the users row.
func (h *AuthHandler) SyncUser(c *gin.Context) {
	userID := currentUserID(c)

	user, result, err := h.auth.Sync(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to sync user")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": user, "result": result})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, h.logger, err, "Failed to log out")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}
