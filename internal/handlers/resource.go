// ===============================
// internal/handlers/resource.go - Resource browsing and plan-gated listing
// ===============================

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"freezybe/internal/access"
	"freezybe/internal/models"
	"freezybe/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ResourceHandler struct {
	resources *services.ResourceService
	users     *services.UserService
	activity  *services.ActivityService
	logger    *zap.Logger
}

func NewResourceHandler(resources *services.ResourceService, users *services.UserService, activity *services.ActivityService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, users: users, activity: activity, logger: logger}
}

// ForPlan returns the jobs, courses and tools the caller's plan unlocks.
func (h *ResourceHandler) ForPlan(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return
	}

	selection, err := h.resources.ForPlan(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load resources")
		return
	}
	c.JSON(http.StatusOK, selection)
}

// viewerPlan loads the caller and returns the plan they are served at.
// Paid plans awaiting approval get ErrApprovalRequired, as with ForPlan.
func (h *ResourceHandler) viewerPlan(c *gin.Context) (models.Plan, bool) {
	user, err := h.users.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return "", false
	}
	plan, ok := user.EffectivePlan()
	if !ok {
		respondError(c, h.logger, services.ErrApprovalRequired, "Failed to load resources")
		return "", false
	}
	return plan, true
}

// Browse pages over the active resources the caller's plan covers.
func (h *ResourceHandler) Browse(c *gin.Context) {
	var filters models.ResourceFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filters"})
		return
	}
	plan, ok := h.viewerPlan(c)
	if !ok {
		return
	}
	filters.Levels = access.ViewableLevels(plan)
	limit, offset := pagination(c)

	result, err := h.resources.List(c.Request.Context(), filters, limit, offset)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list resources")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ResourceHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	var filters models.ResourceFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filters"})
		return
	}
	plan, ok := h.viewerPlan(c)
	if !ok {
		return
	}
	filters.Levels = access.ViewableLevels(plan)
	limit, _ := pagination(c)

	resources, err := h.resources.Search(c.Request.Context(), term, filters, limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to search resources")
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources, "total": len(resources), "query": term})
}

// Get returns one resource if the caller's plan covers its access level.
func (h *ResourceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	resource, err := h.resources.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get resource")
		return
	}
	user, err := h.users.GetUser(ctx, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return
	}

	check := services.CheckResourceAccess(user, resource.Access())
	if !check.HasAccess {
		c.JSON(http.StatusForbidden, gin.H{
			"error":         check.Reason,
			"requiredLevel": resource.Access(),
			"currentPlan":   user.Plan(),
		})
		return
	}
	c.JSON(http.StatusOK, resource)
}

// TrackView records the view in the caller's history and bumps the counter.
// Views of resources above the caller's plan are refused.
func (h *ResourceHandler) TrackView(c *gin.Context) {
	ctx := c.Request.Context()

	resource, err := h.resources.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get resource")
		return
	}
	user, err := h.users.GetUser(ctx, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load user")
		return
	}
	if check := services.CheckResourceAccess(user, resource.Access()); !check.HasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": check.Reason})
		return
	}

	err = h.activity.AddView(ctx, currentUserID(c), resource.ID, models.AddViewRequest{
		Title:     resource.Title,
		Type:      resource.Type,
		SourceURL: resource.SourceURL,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to record view")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "View recorded"})
}

func (h *ResourceHandler) Featured(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "6"))
	if err != nil || limit <= 0 || limit > maxPageSize {
		limit = 6
	}

	resources, err := h.resources.Featured(c.Request.Context(), models.ResourceType(c.Query("type")), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get featured resources")
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

func (h *ResourceHandler) Categories(c *gin.Context) {
	categories, err := h.resources.Categories(c.Request.Context(), models.ResourceType(c.Query("type")))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
