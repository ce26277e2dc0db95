package services

import (
	"fmt"
	"testing"

	"freezybe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResource(id string, t models.ResourceType, level models.AccessLevel) models.Resource {
	return models.Resource{
		ID:             id,
		Title:          "Resource " + id,
		Description:    "Description " + id,
		Type:           t,
		SourcePlatform: "manual",
		Status:         models.StatusActive,
		AccessLevel:    levelPtr(level),
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func TestResourceService_ForPlanPendingPaidPlan(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	user := &models.User{UID: "u1", SelectedPlan: planPtr(models.PlanPro), ApprovalStatus: statusPtr(models.ApprovalPending)}
	_, err := s.ForPlan(bg, user)
	assert.ErrorIs(t, err, ErrApprovalRequired)
}

func TestResourceService_ForPlanFreeUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectQuery("SELECT (.+) FROM resources WHERE status = 'active'").
		WillReturnRows(resourceRows(
			testResource("j1", models.ResourceJob, models.AccessFree),
			testResource("i1", models.ResourceInternship, models.AccessFree),
			testResource("c1", models.ResourceCourse, models.AccessPro),
			testResource("t1", models.ResourceTool, models.AccessDemo),
		))

	// A pending free user is still served.
	user := &models.User{UID: "u1", SelectedPlan: planPtr(models.PlanFree), ApprovalStatus: statusPtr(models.ApprovalPending)}
	sel, err := s.ForPlan(bg, user)
	require.NoError(t, err)

	assert.Equal(t, models.PlanFree, sel.Plan)
	assert.Len(t, sel.Jobs, 2)
	assert.Empty(t, sel.Courses)
	assert.Len(t, sel.Tools, 1)
	assert.True(t, sel.HasMore.Courses)
	assert.False(t, sel.HasMore.Jobs)
	assert.True(t, sel.HasMore.Any)
}

func TestResourceService_ListHasMore(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	var items []models.Resource
	for i := 0; i < 3; i++ {
		items = append(items, testResource(fmt.Sprintf("r%d", i), models.ResourceCourse, models.AccessFree))
	}

	mock.ExpectQuery("SELECT (.+) FROM resources WHERE status = 'active' AND type = \\$1 ORDER BY priority_score DESC").
		WithArgs("course", 3, 0).
		WillReturnRows(resourceRows(items...))

	resp, err := s.List(bg, models.ResourceFilters{Type: models.ResourceCourse}, 2, 0)
	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	assert.Len(t, resp.Resources, 2)
	assert.Equal(t, 2, resp.Total)
}

func TestResourceService_ListSortOrder(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectQuery("ORDER BY title ASC, created_at DESC, id ASC").
		WithArgs(11, 0).
		WillReturnRows(resourceRows())

	resp, err := s.List(bg, models.ResourceFilters{SortBy: "title", SortOrder: "asc"}, 10, 0)
	require.NoError(t, err)
	assert.False(t, resp.HasMore)
	assert.NotNil(t, resp.Resources)
}

func TestResourceService_SearchBlankTermSkipsQuery(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	results, err := s.Search(bg, "   ", models.ResourceFilters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResourceService_Search(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectQuery("title ILIKE \\$1").
		WithArgs("%design%", 20).
		WillReturnRows(resourceRows(testResource("t1", models.ResourceTool, models.AccessDemo)))

	results, err := s.Search(bg, "design", models.ResourceFilters{}, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.AccessDemo, results[0].Access())
}

func TestResourceService_TrackAnalytics(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectExec("UPDATE resources SET save_count = GREATEST").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.TrackAnalytics(bg, "r1", models.AnalyticsUnsave))
	assert.ErrorIs(t, s.TrackAnalytics(bg, "r1", "share"), ErrValidation)
}

func TestResourceService_SearchEscapesWildcards(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectQuery("title ILIKE \\$1").
		WithArgs(`%100\%\_off%`, 5).
		WillReturnRows(resourceRows())

	_, err := s.Search(bg, "100%_off", models.ResourceFilters{}, 5)
	require.NoError(t, err)
}

func TestResourceService_FeaturedOnlyPublicLevels(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewResourceService(db, nopLogger())

	mock.ExpectQuery("is_featured = true AND COALESCE\\(access_level, 'free'\\) = ANY\\(\\$2\\)").
		WithArgs("job", pq.StringArray{"demo", "free"}, 6).
		WillReturnRows(resourceRows(testResource("j1", models.ResourceJob, models.AccessFree)))

	resources, err := s.Featured(bg, models.ResourceJob, 6)
	require.NoError(t, err)
	assert.Len(t, resources, 1)
}
