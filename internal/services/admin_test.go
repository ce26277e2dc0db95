package services

import (
	"testing"
	"time"

	"freezybe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patchTarget() *models.Resource {
	r := testResource("r1", models.ResourceCourse, models.AccessFree)
	external := "legacy-r1"
	r.ExternalID = &external
	r.LegacyShape = models.ShapeNested
	r.ViewCount = 12
	r.SaveCount = 3
	r.CreatedBy = "importer"
	r.Requirements = pq.StringArray{}
	r.Benefits = pq.StringArray{}
	return &r
}

func TestApplyResourcePatch_Merge(t *testing.T) {
	original := patchTarget()

	updated, err := ApplyResourcePatch(original, []byte(`{
		"title": "Advanced Go",
		"accessLevel": "pro",
		"requirements": ["Go basics"],
		"id": "hijacked",
		"viewCount": 9999,
		"createdBy": "someone"
	}`), PatchMerge)
	require.NoError(t, err)

	assert.Equal(t, "Advanced Go", updated.Title)
	assert.Equal(t, models.AccessPro, updated.Access())
	assert.Equal(t, []string{"Go basics"}, []string(updated.Requirements))

	assert.Equal(t, "r1", updated.ID)
	assert.Equal(t, 12, updated.ViewCount)
	assert.Equal(t, "importer", updated.CreatedBy)
	require.NotNil(t, updated.ExternalID)
	assert.Equal(t, "legacy-r1", *updated.ExternalID)

	// the original is left untouched
	assert.Equal(t, "Resource r1", original.Title)
}

func TestApplyResourcePatch_JSONPatch(t *testing.T) {
	updated, err := ApplyResourcePatch(patchTarget(), []byte(`[
		{"op": "replace", "path": "/isFeatured", "value": true},
		{"op": "replace", "path": "/priorityScore", "value": 95},
		{"op": "add", "path": "/benefits/-", "value": "Certificate"}
	]`), PatchJSON)
	require.NoError(t, err)

	assert.True(t, updated.IsFeatured)
	assert.Equal(t, 95, updated.PriorityScore)
	assert.Equal(t, []string{"Certificate"}, []string(updated.Benefits))
}

func TestApplyResourcePatch_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		kind  PatchKind
	}{
		{"malformed merge patch", `{"title":`, PatchMerge},
		{"malformed json patch", `{"op":"replace"}`, PatchJSON},
		{"json patch on missing path", `[{"op":"replace","path":"/nope/deeper","value":1}]`, PatchJSON},
		{"invalid type", `{"type":"podcast"}`, PatchMerge},
		{"blank title", `{"title":"  "}`, PatchMerge},
		{"invalid access level", `{"accessLevel":"vip"}`, PatchMerge},
		{"negative priority", `{"priorityScore":-1}`, PatchMerge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyResourcePatch(patchTarget(), []byte(tt.patch), tt.kind)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func newTestAdminService(t *testing.T) (*AdminService, sqlmock.Sqlmock, *recordingNotifier) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	s := NewAdminService(db, NewNotificationService(db, notifier, nopLogger()), nopLogger())
	s.now = func() time.Time { return testNow }
	return s, mock, notifier
}

func TestAdminService_ApproveUser(t *testing.T) {
	s, mock, notifier := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET approval_status = 'approved'").
		WithArgs("u1", "admin-1", "enterprise").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ali"))
	mock.ExpectExec("UPDATE payment_proofs SET status").
		WithArgs("u1", models.PaymentProofReviewed, models.PaymentProofSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))
	mock.ExpectCommit()

	require.NoError(t, s.ApproveUser(bg, "u1", "admin-1", models.PlanEnterprise))

	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "u1", notifier.pushed[0].UserID)
	assert.Equal(t, models.NotificationApproval, notifier.pushed[0].Type)
}

func TestAdminService_ApproveUserNotFoundDoesNotNotify(t *testing.T) {
	s, mock, notifier := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET approval_status = 'approved'").
		WithArgs("ghost", "admin-1", "").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectRollback()

	err := s.ApproveUser(bg, "ghost", "admin-1", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, notifier.pushed)
}

func TestAdminService_ApproveUserInvalidPlan(t *testing.T) {
	s, _, _ := newTestAdminService(t)
	assert.ErrorIs(t, s.ApproveUser(bg, "u1", "admin-1", "gold"), ErrInvalidPlan)
}

func TestAdminService_RejectUser(t *testing.T) {
	s, mock, notifier := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET approval_status = 'rejected'").
		WithArgs("u1", "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))
	mock.ExpectCommit()

	require.NoError(t, s.RejectUser(bg, "u1", "admin-1", "Payment not received"))
	require.Len(t, notifier.pushed, 1)
	assert.Contains(t, notifier.pushed[0].Body, "Payment not received")
}

func TestAdminService_BulkApproveUsers(t *testing.T) {
	s, mock, notifier := newTestAdminService(t)

	n, err := s.BulkApproveUsers(bg, nil, "admin-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectBegin()
	mock.ExpectQuery("WHERE uid = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "name"}).AddRow("u1", "Ali").AddRow("u2", "Sara"))
	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))
	}
	mock.ExpectCommit()

	n, err = s.BulkApproveUsers(bg, []string{"u1", "u2", "u3"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, notifier.pushed, 2)
}

func TestAdminService_BulkApproveUsersRowError(t *testing.T) {
	s, mock, notifier := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("WHERE uid = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "name"}).
			AddRow("u1", "Ali").
			AddRow("u2", "Sara").
			RowError(1, errors.New("connection lost")))
	mock.ExpectRollback()

	n, err := s.BulkApproveUsers(bg, []string{"u1", "u2"}, "admin-1")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.pushed)
}

func TestAdminService_UpdateUserRequiresFields(t *testing.T) {
	s, _, _ := newTestAdminService(t)

	_, err := s.UpdateUser(bg, "u1", models.AdminUpdateUserRequest{}, "admin-1")
	assert.ErrorIs(t, err, ErrValidation)

	bad := models.ApprovalStatus("maybe")
	_, err = s.UpdateUser(bg, "u1", models.AdminUpdateUserRequest{ApprovalStatus: &bad}, "admin-1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminService_UsersByStatusRejectsUnknown(t *testing.T) {
	s, _, _ := newTestAdminService(t)

	_, err := s.UsersByStatus(bg, "archived", 20, 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAdminService_CreateResourceDefaults(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resources").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, err := s.CreateResource(bg, &models.Resource{Title: "Remote QA Intern", Description: "Test things"}, "admin-1")
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.ResourceJob, r.Type)
	assert.Equal(t, models.StatusActive, r.Status)
	assert.Equal(t, models.AccessFree, r.Access())
	assert.Equal(t, "manual", r.SourcePlatform)
	assert.Equal(t, "admin-1", r.CreatedBy)
	assert.Equal(t, testNow, r.CreatedAt)
}

func TestAdminService_CreateResourceInvalid(t *testing.T) {
	s, _, _ := newTestAdminService(t)

	_, err := s.CreateResource(bg, &models.Resource{Title: "No description"}, "admin-1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Description is required")
}

func TestAdminService_UpdateResource(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM resources WHERE id::text = \\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(resourceRows(*patchTarget()))
	mock.ExpectExec("UPDATE resources SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := s.UpdateResource(bg, "r1", []byte(`{"category":"Programming"}`), PatchMerge, "admin-2")
	require.NoError(t, err)
	assert.Equal(t, "Programming", updated.Category)
	assert.Equal(t, "admin-2", updated.UpdatedBy)
	assert.Equal(t, testNow, updated.UpdatedAt)
}

func TestAdminService_BatchUpdateRollsBackOnFailure(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("r1").WillReturnRows(resourceRows(*patchTarget()))
	mock.ExpectExec("UPDATE resources SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FOR UPDATE").WithArgs("r2").WillReturnRows(resourceRows())
	mock.ExpectRollback()

	n, err := s.BatchUpdateResources(bg, []models.BatchUpdateItem{
		{ID: "r1", Patch: []byte(`{"isFeatured":true}`)},
		{ID: "r2", Patch: []byte(`{"isFeatured":true}`)},
	}, "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, n)
}

func TestAdminService_ModerateResource(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	assert.ErrorIs(t, s.ModerateResource(bg, "r1", "admin-1", "archive", ""), ErrValidation)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE resources SET status").
		WithArgs("r1", "removed", "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ModerateResource(bg, "r1", "admin-1", "reject", "Spam"))
}

func TestAdminService_DeleteResourceMissing(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM resources").WithArgs("r9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.DeleteResource(bg, "r9", "admin-1"), ErrNotFound)
}

func TestAdminService_Analytics(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	kc := func(pairs ...interface{}) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"key", "count"})
		for i := 0; i < len(pairs); i += 2 {
			rows.AddRow(pairs[i], pairs[i+1])
		}
		return rows
	}
	mock.ExpectQuery("FROM users GROUP BY").WillReturnRows(kc("approved", 4, "pending", 2))
	mock.ExpectQuery("FROM users GROUP BY").WillReturnRows(kc("free", 5, "pro", 1))
	mock.ExpectQuery("SELECT type AS key").WillReturnRows(kc("job", 10, "course", 3))
	mock.ExpectQuery("access_level, 'free'").WillReturnRows(kc("free", 12, "pro", 1))
	mock.ExpectQuery("SELECT status AS key").WillReturnRows(kc("active", 13))
	mock.ExpectQuery("FROM payment_proofs").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	a, err := s.Analytics(bg)
	require.NoError(t, err)
	assert.Equal(t, 6, a.Users.Total)
	assert.Equal(t, 2, a.Users.ByStatus["pending"])
	assert.Equal(t, 13, a.Resources.Total)
	assert.Equal(t, 1, a.Resources.ByAccessLevel["pro"])
	assert.Equal(t, 2, a.PendingPaymentProofs)
	assert.Equal(t, testNow, a.GeneratedAt)
}

type stubSigner struct{}

func (stubSigner) SignedURL(key string) (string, error) {
	if key == "broken" {
		return "", errors.New("no credentials")
	}
	return "https://signed.example.com/" + key + "?sig=1", nil
}

func TestAdminService_PendingPaymentProofsSigned(t *testing.T) {
	s, mock, _ := newTestAdminService(t)
	s.SetURLSigner(stubSigner{})

	mock.ExpectQuery("FROM payment_proofs WHERE status").
		WithArgs(models.PaymentProofSubmitted, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "plan", "file_key", "file_url", "status", "submitted_at"}).
			AddRow("p1", "u1", "pro", "payment-proofs/u1/p1.png", "https://cdn.example.com/payment-proofs/u1/p1.png", "submitted", testNow).
			AddRow("p2", "u2", "enterprise", "broken", "https://cdn.example.com/broken", "submitted", testNow))

	proofs, err := s.PendingPaymentProofs(bg, 10)
	require.NoError(t, err)
	require.Len(t, proofs, 2)
	assert.Equal(t, "https://signed.example.com/payment-proofs/u1/p1.png?sig=1", proofs[0].FileURL)
	assert.Equal(t, "https://cdn.example.com/broken", proofs[1].FileURL, "unsigned link kept when signing fails")
}

func TestAdminService_InitializeSampleData(t *testing.T) {
	t.Run("skips a populated catalogue", func(t *testing.T) {
		s, mock, _ := newTestAdminService(t)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resources").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		n, err := s.InitializeSampleData(bg, "admin-1")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("seeds an empty catalogue", func(t *testing.T) {
		s, mock, _ := newTestAdminService(t)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resources").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		for range SampleResources() {
			mock.ExpectExec("INSERT INTO resources").WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := s.InitializeSampleData(bg, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})
}

func TestSampleResources(t *testing.T) {
	samples := SampleResources()
	require.Len(t, samples, 6)

	types := map[models.ResourceType]int{}
	for _, r := range samples {
		assert.Empty(t, r.Validate(), r.Title)
		assert.Equal(t, models.StatusActive, r.Status)
		types[r.Type]++
	}
	assert.Equal(t, 2, types[models.ResourceJob])
	assert.Equal(t, 2, types[models.ResourceCourse])
	assert.Equal(t, 2, types[models.ResourceTool])

	// each call returns a fresh copy
	samples[0].Title = "changed"
	assert.NotEqual(t, "changed", SampleResources()[0].Title)
}

func TestAdminService_MigrateAccessLevels(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	a := testResource("a", models.ResourceJob, models.AccessFree)
	a.AccessLevel = nil
	a.Title = "Alpha"
	b := testResource("b", models.ResourceCourse, models.AccessPro)
	b.Title = "Beta"
	c := testResource("c", models.ResourceTool, models.AccessFree)
	c.AccessLevel = nil
	c.Title = "Gamma"

	mock.ExpectQuery("SELECT (.+) FROM resources").WillReturnRows(resourceRows(c, b, a))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE resources SET access_level").
		WithArgs("a", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE resources SET access_level").
		WithArgs("c", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := s.MigrateAccessLevels(bg, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 2, report.Updated)

	total := 0
	for _, n := range report.Counts {
		total += n
	}
	assert.Equal(t, 2, total)
}

func TestAdminService_MigrateAccessLevelsIgnoresTitleCase(t *testing.T) {
	s, mock, _ := newTestAdminService(t)

	var rows []models.Resource
	for _, title := range []string{"Gamma", "beta", "Alpha"} {
		r := testResource(title, models.ResourceJob, models.AccessFree)
		r.AccessLevel = nil
		r.Title = title
		rows = append(rows, r)
	}

	mock.ExpectQuery("SELECT (.+) FROM resources").WillReturnRows(resourceRows(rows...))
	mock.ExpectBegin()
	for _, id := range []string{"Alpha", "beta", "Gamma"} {
		mock.ExpectExec("UPDATE resources SET access_level").
			WithArgs(id, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "admin-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := s.MigrateAccessLevels(bg, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Updated)
}
