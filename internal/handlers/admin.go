// ===============================
// internal/handlers/admin.go - Admin dashboard endpoints
// ===============================

package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jsonPatchContentType = "application/json-patch+json"

type AdminHandler struct {
	admin    *services.AdminService
	users    *services.UserService
	importer *services.Importer
	logger   *zap.Logger
}

// NewAdminHandler accepts a nil importer when Firestore is not configured.
func NewAdminHandler(admin *services.AdminService, users *services.UserService, importer *services.Importer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, users: users, importer: importer, logger: logger}
}

// ===============================
// USERS
// ===============================

// ListUsers pages over users, optionally filtered by ?status=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)

	var (
		result *models.UserListResponse
		err    error
	)
	if status := c.Query("status"); status != "" {
		result, err = h.admin.UsersByStatus(c.Request.Context(), models.ApprovalStatus(status), limit, offset)
	} else {
		result, err = h.admin.ListUsers(c.Request.Context(), limit, offset)
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.admin.GetUser(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) ApproveUser(c *gin.Context) {
	var req models.ApproveUserRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
			return
		}
	}

	if err := h.admin.ApproveUser(c.Request.Context(), c.Param("uid"), currentUserID(c), req.Plan); err != nil {
		respondError(c, h.logger, err, "Failed to approve user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User approved successfully"})
}

func (h *AdminHandler) RejectUser(c *gin.Context) {
	var req models.RejectUserRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
			return
		}
	}

	if err := h.admin.RejectUser(c.Request.Context(), c.Param("uid"), currentUserID(c), req.Reason); err != nil {
		respondError(c, h.logger, err, "Failed to reject user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User rejected"})
}

func (h *AdminHandler) BulkApprove(c *gin.Context) {
	var req models.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userIds required"})
		return
	}

	approved, err := h.admin.BulkApproveUsers(c.Request.Context(), req.UserIDs, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to approve users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": approved, "requested": len(req.UserIDs)})
}

func (h *AdminHandler) UpdateUserPlan(c *gin.Context) {
	var req models.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is required"})
		return
	}

	if err := h.admin.UpdateUserPlan(c.Request.Context(), c.Param("uid"), req.Plan, currentUserID(c)); err != nil {
		respondError(c, h.logger, err, "Failed to update plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan updated to " + string(req.Plan)})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req models.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), c.Param("uid"), req, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	uid := c.Param("uid")
	if uid == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admins cannot delete themselves"})
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), uid, currentUserID(c)); err != nil {
		respondError(c, h.logger, err, "Failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ===============================
// RESOURCES
// ===============================

func (h *AdminHandler) ListResources(c *gin.Context) {
	limit, offset := pagination(c)

	result, err := h.admin.ListAllResources(c.Request.Context(), models.ResourceStatus(c.Query("status")), limit, offset)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list resources")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) CreateResource(c *gin.Context) {
	var resource models.Resource
	if err := c.ShouldBindJSON(&resource); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource data"})
		return
	}

	created, err := h.admin.CreateResource(c.Request.Context(), &resource, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create resource")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateResource takes a JSON merge patch, or an RFC 6902 patch when sent
// as application/json-patch+json.
func (h *AdminHandler) UpdateResource(c *gin.Context) {
	patch, err := io.ReadAll(c.Request.Body)
	if err != nil || len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Patch body required"})
		return
	}

	kind := services.PatchMerge
	if strings.HasPrefix(c.GetHeader("Content-Type"), jsonPatchContentType) {
		kind = services.PatchJSON
	}

	updated, err := h.admin.UpdateResource(c.Request.Context(), c.Param("id"), patch, kind, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update resource")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) BatchUpdateResources(c *gin.Context) {
	var req models.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "updates required"})
		return
	}

	updated, err := h.admin.BatchUpdateResources(c.Request.Context(), req.Updates, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update resources")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *AdminHandler) DeleteResource(c *gin.Context) {
	if err := h.admin.DeleteResource(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, h.logger, err, "Failed to delete resource")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource deleted"})
}

func (h *AdminHandler) ModerateResource(c *gin.Context) {
	var req models.ModerateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action is required"})
		return
	}

	if err := h.admin.ModerateResource(c.Request.Context(), c.Param("id"), currentUserID(c), req.Action, req.Reason); err != nil {
		respondError(c, h.logger, err, "Failed to moderate resource")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Resource " + req.Action + "d successfully"})
}

// ===============================
// REPORTING
// ===============================

func (h *AdminHandler) Analytics(c *gin.Context) {
	analytics, err := h.admin.Analytics(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to get analytics")
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *AdminHandler) ActionLogs(c *gin.Context) {
	limit, offset := pagination(c)

	actions, hasMore, err := h.admin.ActionLogs(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get admin actions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions, "hasMore": hasMore})
}

func (h *AdminHandler) PaymentProofs(c *gin.Context) {
	limit, _ := pagination(c)

	proofs, err := h.admin.PendingPaymentProofs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get payment proofs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs, "total": len(proofs)})
}

// ===============================
// MAINTENANCE
// ===============================

func (h *AdminHandler) InitializeSampleData(c *gin.Context) {
	added, err := h.admin.InitializeSampleData(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to initialize sample data")
		return
	}

	message := strconv.Itoa(added) + " sample resources added successfully"
	if added == 0 {
		message = "Data already exists"
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "message": message})
}

func (h *AdminHandler) MigrateAccessLevels(c *gin.Context) {
	report, err := h.admin.MigrateAccessLevels(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to migrate access levels")
		return
	}
	c.JSON(http.StatusOK, report)
}

// MigrateApprovals approves every free user still lacking approval, or a
// single user when :uid is given.
func (h *AdminHandler) MigrateApprovals(c *gin.Context) {
	if uid := c.Param("uid"); uid != "" {
		migrated, err := h.users.MigrateApprovalStatus(c.Request.Context(), uid)
		if err != nil {
			respondError(c, h.logger, err, "Failed to migrate approval status")
			return
		}
		c.JSON(http.StatusOK, gin.H{"migrated": migrated})
		return
	}

	report, err := h.users.MigrateAllApprovalStatuses(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to migrate approval statuses")
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImportFirestore copies legacy documents. ?collection= picks resources,
// users or admins; the default imports all three.
func (h *AdminHandler) ImportFirestore(c *gin.Context) {
	if h.importer == nil {
		respondError(c, h.logger, services.ErrImportDisabled, "Import unavailable")
		return
	}

	ctx := c.Request.Context()
	actor := currentUserID(c)

	var (
		reports []models.ImportReport
		err     error
	)
	switch c.DefaultQuery("collection", "all") {
	case services.CollectionResources:
		var r models.ImportReport
		r, err = h.importer.ImportResources(ctx, actor)
		reports = []models.ImportReport{r}
	case services.CollectionUsers:
		var r models.ImportReport
		r, err = h.importer.ImportUsers(ctx, actor)
		reports = []models.ImportReport{r}
	case services.CollectionAdmins:
		var r models.ImportReport
		r, err = h.importer.ImportAdmins(ctx, actor)
		reports = []models.ImportReport{r}
	case "all":
		reports, err = h.importer.ImportAll(ctx, actor)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection must be resources, users, admins or all"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to import from Firestore")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
