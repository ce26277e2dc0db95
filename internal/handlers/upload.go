// ===============================
// internal/handlers/upload.go - Payment proof upload
// ===============================

package handlers

import (
	"net/http"

	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UploadHandler struct {
	uploads *services.UploadService
	users   *services.UserService
	logger  *zap.Logger
}

func NewUploadHandler(uploads *services.UploadService, users *services.UserService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, users: users, logger: logger}
}

// SubmitPaymentProof accepts the screenshot as multipart field "file".
func (h *UploadHandler) SubmitPaymentProof(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, models.MaxPaymentProofSize+1024*1024)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No file uploaded",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	user, err := h.users.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return
	}

	proof, err := h.uploads.SubmitPaymentProof(c.Request.Context(), user, services.PaymentProofUpload{
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to upload payment proof")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"proof":   proof,
		"message": "Payment proof received. An admin will review it shortly.",
	})
}
