package services

import (
	"testing"

	"freezybe/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_Save(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO saved_resources").
		WillReturnRows(sqlmock.NewRows([]string{"saved_at"}).AddRow(testNow))
	mock.ExpectExec("UPDATE resources SET save_count = save_count \\+ 1").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := s.Save(bg, "u1", models.SaveResourceRequest{ResourceID: "r1", Title: "Frontend Developer", Type: models.ResourceJob})
	require.NoError(t, err)
	assert.Equal(t, testNow, saved.SavedAt)
	assert.Equal(t, "u1", saved.UserID)
}

func TestActivityService_SaveTwice(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO saved_resources").
		WillReturnRows(sqlmock.NewRows([]string{"saved_at"}))
	mock.ExpectRollback()

	_, err := s.Save(bg, "u1", models.SaveResourceRequest{ResourceID: "r1", Title: "Frontend Developer"})
	assert.ErrorIs(t, err, ErrAlreadySaved)
}

func TestActivityService_RemoveSavedIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM saved_resources").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE resources SET save_count = GREATEST").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM saved_resources").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	removed, err := s.RemoveSaved(bg, "u1", "r1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveSaved(bg, "u1", "r1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestActivityService_AddViewTrimsHistory(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO viewed_resources").
		WithArgs("u1", "r1", "Canva", "tool", "https://canva.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM viewed_resources").
		WithArgs("u1", models.MaxViewHistory).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE resources SET view_count = view_count \\+ 1").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.AddView(bg, "u1", "r1", models.AddViewRequest{Title: "Canva", Type: models.ResourceTool, SourceURL: "https://canva.com"})
	require.NoError(t, err)
}

func TestActivityService_AddApplicationRejectsUnknownStatus(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	_, err := s.AddApplication(bg, "u1", models.CreateApplicationRequest{JobTitle: "Engineer", Status: "ghosted"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestActivityService_AddApplicationWithoutResource(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO applications").
		WillReturnRows(sqlmock.NewRows([]string{"applied_at", "updated_at"}).AddRow(testNow, testNow))
	mock.ExpectCommit()

	app, err := s.AddApplication(bg, "u1", models.CreateApplicationRequest{JobTitle: "Engineer", Company: "TechCorp"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, testNow, app.AppliedAt)
}

func TestActivityService_UpdateApplicationStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectExec("UPDATE applications SET status").
		WithArgs("a1", "u1", "interview", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateApplicationStatus(bg, "u1", "a1", models.UpdateApplicationRequest{Status: models.ApplicationInterview})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityService_Stats(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityService(db, nopLogger())

	mock.ExpectQuery("SELECT").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"saved", "viewed", "applications", "active"}).AddRow(3, 10, 1, 42))

	stats, err := s.Stats(bg, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{SavedResources: 3, ViewedResources: 10, Applications: 1, ActiveResources: 42}, *stats)
}
