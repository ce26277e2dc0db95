// ===============================
// internal/services/resource.go - Resource listing, search and plan-gated access
// ===============================

package services

import (
	"context"
	"fmt"
	"strings"

	"freezybe/internal/access"
	"freezybe/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const resourceColumns = `id, external_id, legacy_shape, title, description, type, category, company,
	source_url, source_platform, requirements, benefits, location, duration, salary_range,
	application_deadline, status, access_level, is_featured, priority_score, view_count,
	save_count, application_count, created_by, updated_by, scraped_at, created_at, updated_at`

// Sortable columns for List
var resourceSortFields = map[string]string{
	"priority_score": "priority_score",
	"priorityScore":  "priority_score",
	"created_at":     "created_at",
	"createdAt":      "created_at",
	"title":          "title",
	"view_count":     "view_count",
	"viewCount":      "view_count",
}

// likeEscaper makes % and _ in a search term match literally. Backslash is
// the default LIKE escape in Postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ResourceService struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewResourceService(db *sqlx.DB, logger *zap.Logger) *ResourceService {
	return &ResourceService{db: db, logger: logger}
}

// filterClause builds the WHERE conditions shared by List and Search.
func filterClause(filters models.ResourceFilters, args []interface{}) ([]string, []interface{}) {
	conds := []string{"status = 'active'"}

	if filters.Type != "" {
		args = append(args, string(filters.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filters.AccessLevel != "" {
		args = append(args, string(filters.AccessLevel))
		conds = append(conds, fmt.Sprintf("COALESCE(access_level, 'free') = $%d", len(args)))
	}
	if filters.Featured {
		conds = append(conds, "is_featured = true")
	}
	if len(filters.Levels) > 0 {
		levels := make(pq.StringArray, len(filters.Levels))
		for i, level := range filters.Levels {
			levels[i] = string(level)
		}
		args = append(args, levels)
		conds = append(conds, fmt.Sprintf("COALESCE(access_level, 'free') = ANY($%d)", len(args)))
	}

	return conds, args
}

func orderClause(filters models.ResourceFilters) string {
	field, ok := resourceSortFields[filters.SortBy]
	if !ok {
		field = "priority_score"
	}
	direction := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, created_at DESC, id ASC", field, direction)
}

// List returns one page of active resources. HasMore is found by fetching one
// row past the page.
func (s *ResourceService) List(ctx context.Context, filters models.ResourceFilters, limit, offset int) (*models.ResourceListResponse, error) {
	conds, args := filterClause(filters, nil)
	args = append(args, limit+1, offset)

	query := fmt.Sprintf("SELECT %s FROM resources WHERE %s %s LIMIT $%d OFFSET $%d",
		resourceColumns, strings.Join(conds, " AND "), orderClause(filters), len(args)-1, len(args))

	var resources []models.Resource
	if err := s.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list resources")
	}

	hasMore := len(resources) > limit
	if hasMore {
		resources = resources[:limit]
	}
	if resources == nil {
		resources = []models.Resource{}
	}

	return &models.ResourceListResponse{Resources: resources, HasMore: hasMore, Total: len(resources)}, nil
}

// Get returns a resource in any status.
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	var r models.Resource
	err := s.db.GetContext(ctx, &r,
		"SELECT "+resourceColumns+" FROM resources WHERE id::text = $1 OR external_id = $1 LIMIT 1", id)
	if err != nil {
		return nil, notFound(err, "failed to get resource")
	}
	return &r, nil
}

// Search matches term case-insensitively against title, description,
// category and company of active resources.
func (s *ResourceService) Search(ctx context.Context, term string, filters models.ResourceFilters, limit int) ([]models.Resource, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Resource{}, nil
	}

	conds, args := filterClause(filters, []interface{}{"%" + likeEscaper.Replace(term) + "%"})
	conds = append(conds, "(title ILIKE $1 OR description ILIKE $1 OR category ILIKE $1 OR company ILIKE $1)")
	args = append(args, limit)

	query := fmt.Sprintf("SELECT %s FROM resources WHERE %s ORDER BY title ASC LIMIT $%d",
		resourceColumns, strings.Join(conds, " AND "), len(args))

	resources := []models.Resource{}
	if err := s.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to search resources")
	}
	return resources, nil
}

// Featured returns active featured resources by priority, optionally of one
// type. It backs a public route, so only demo and free items are returned.
func (s *ResourceService) Featured(ctx context.Context, resourceType models.ResourceType, limit int) ([]models.Resource, error) {
	conds, args := filterClause(models.ResourceFilters{
		Type:     resourceType,
		Featured: true,
		Levels:   access.ViewableLevels(models.PlanFree),
	}, nil)
	args = append(args, limit)

	query := fmt.Sprintf("SELECT %s FROM resources WHERE %s ORDER BY priority_score DESC, created_at DESC LIMIT $%d",
		resourceColumns, strings.Join(conds, " AND "), len(args))

	resources := []models.Resource{}
	if err := s.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to get featured resources")
	}
	return resources, nil
}

// Categories returns the distinct non-empty categories of active resources.
func (s *ResourceService) Categories(ctx context.Context, resourceType models.ResourceType) ([]string, error) {
	conds, args := filterClause(models.ResourceFilters{Type: resourceType}, nil)
	conds = append(conds, "category <> ''")

	query := fmt.Sprintf("SELECT DISTINCT category FROM resources WHERE %s ORDER BY category ASC",
		strings.Join(conds, " AND "))

	categories := []string{}
	if err := s.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to get categories")
	}
	return categories, nil
}

// TrackAnalytics bumps one counter. Counters never drop below zero.
func (s *ResourceService) TrackAnalytics(ctx context.Context, id string, kind models.AnalyticsKind) error {
	return trackAnalytics(ctx, s.db, id, kind)
}

func trackAnalytics(ctx context.Context, db sqlx.ExecerContext, id string, kind models.AnalyticsKind) error {
	var set string
	switch kind {
	case models.AnalyticsView:
		set = "view_count = view_count + 1"
	case models.AnalyticsSave:
		set = "save_count = save_count + 1"
	case models.AnalyticsUnsave:
		set = "save_count = GREATEST(save_count - 1, 0)"
	case models.AnalyticsApplication:
		set = "application_count = application_count + 1"
	default:
		return errors.Wrapf(ErrValidation, "unknown analytics type %q", kind)
	}

	query := fmt.Sprintf("UPDATE resources SET %s WHERE id::text = $1 OR external_id = $1", set)
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(err, "failed to update analytics")
	}
	return nil
}

// CountActive returns the number of active resources.
func (s *ResourceService) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM resources WHERE status = 'active'"); err != nil {
		return 0, errors.Wrap(err, "failed to count resources")
	}
	return count, nil
}

// ActiveResources loads every active resource for plan selection.
func (s *ResourceService) ActiveResources(ctx context.Context) ([]models.Resource, error) {
	resources := []models.Resource{}
	err := s.db.SelectContext(ctx, &resources,
		"SELECT "+resourceColumns+" FROM resources WHERE status = 'active'")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active resources")
	}
	return resources, nil
}

// ForPlan returns what user's plan allows. A paid plan that an admin has
// not yet approved yields ErrApprovalRequired.
func (s *ResourceService) ForPlan(ctx context.Context, user *models.User) (*access.Selection, error) {
	plan, ok := user.EffectivePlan()
	if !ok {
		return nil, ErrApprovalRequired
	}

	resources, err := s.ActiveResources(ctx)
	if err != nil {
		return nil, err
	}

	sel := access.Select(plan, resources)
	s.logger.Debug("plan selection",
		zap.String("uid", user.UID),
		zap.String("plan", string(plan)),
		zap.Int("jobs", len(sel.Jobs)),
		zap.Int("courses", len(sel.Courses)),
		zap.Int("tools", len(sel.Tools)),
		zap.Bool("has_more", sel.HasMore.Any))
	return &sel, nil
}
