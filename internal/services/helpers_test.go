package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"freezybe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func resourceRows(resources ...models.Resource) *sqlmock.Rows {
	rows := sqlmock.NewRows(columns(resourceColumns))
	for _, r := range resources {
		var level interface{}
		if r.AccessLevel != nil {
			level = string(*r.AccessLevel)
		}
		var externalID interface{}
		if r.ExternalID != nil {
			externalID = *r.ExternalID
		}
		rows.AddRow(
			r.ID, externalID, r.LegacyShape, r.Title, r.Description, string(r.Type), r.Category, r.Company,
			r.SourceURL, r.SourcePlatform, []byte("{}"), []byte("{}"), r.Location, r.Duration, nil,
			nil, string(r.Status), level, r.IsFeatured, r.PriorityScore, r.ViewCount,
			r.SaveCount, r.ApplicationCount, r.CreatedBy, r.UpdatedBy, nil, r.CreatedAt, r.UpdatedAt,
		)
	}
	return rows
}

func userRows(users ...models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows(columns(userColumns))
	for _, u := range users {
		var plan, status, approver, approvedAt interface{}
		if u.SelectedPlan != nil {
			plan = string(*u.SelectedPlan)
		}
		if u.ApprovalStatus != nil {
			status = string(*u.ApprovalStatus)
		}
		if u.ApprovedBy != nil {
			approver = *u.ApprovedBy
		}
		if u.ApprovedAt != nil {
			approvedAt = *u.ApprovedAt
		}
		var prefs interface{}
		if u.Preferences != nil {
			prefs = []byte(`{"notifications":{"email":true}}`)
		}
		rows.AddRow(
			u.UID, u.Name, u.Email, u.PhoneNumber, u.Location, u.UserType, u.EmailVerified,
			plan, status, approver, approvedAt, nil, nil,
			prefs, testNow, testNow, testNow,
		)
	}
	return rows
}

func planPtr(p models.Plan) *models.Plan { return &p }

func statusPtr(s models.ApprovalStatus) *models.ApprovalStatus { return &s }

func levelPtr(l models.AccessLevel) *models.AccessLevel { return &l }

func strPtr(s string) *string { return &s }

type recordingNotifier struct {
	pushed []*models.Notification
}

func (r *recordingNotifier) PushNotification(_ string, n *models.Notification) {
	r.pushed = append(r.pushed, n)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

var bg = context.Background()
