// ===============================
// internal/services/activity.go - Saved resources, view history and applications
// ===============================

package services

import (
	"context"
	"database/sql"

	"freezybe/internal/database"
	"freezybe/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ActivityService struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewActivityService(db *sqlx.DB, logger *zap.Logger) *ActivityService {
	return &ActivityService{db: db, logger: logger}
}

// GetSaved returns the user's saved resources, newest first.
func (s *ActivityService) GetSaved(ctx context.Context, uid string) ([]models.SavedResource, error) {
	saved := []models.SavedResource{}
	err := s.db.SelectContext(ctx, &saved, `
		SELECT user_id, resource_id, title, type, description, location, duration, source_url, saved_at
		FROM saved_resources WHERE user_id = $1 ORDER BY saved_at DESC`, uid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saved resources")
	}
	return saved, nil
}

// Save stores a snapshot of the resource. Saving twice yields ErrAlreadySaved.
func (s *ActivityService) Save(ctx context.Context, uid string, req models.SaveResourceRequest) (*models.SavedResource, error) {
	saved := &models.SavedResource{
		UserID:      uid,
		ResourceID:  req.ResourceID,
		Title:       req.Title,
		Type:        req.Type,
		Description: req.Description,
		Location:    req.Location,
		Duration:    req.Duration,
		SourceURL:   req.SourceURL,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rows, err := sqlx.NamedQueryContext(ctx, tx, `
			INSERT INTO saved_resources (user_id, resource_id, title, type, description, location, duration, source_url)
			VALUES (:user_id, :resource_id, :title, :type, :description, :location, :duration, :source_url)
			ON CONFLICT (user_id, resource_id) DO NOTHING
			RETURNING saved_at`, saved)
		if err != nil {
			return errors.Wrap(err, "failed to save resource")
		}

		inserted := rows.Next()
		if inserted {
			err = rows.Scan(&saved.SavedAt)
		}
		rows.Close()
		if err != nil {
			return errors.Wrap(err, "failed to read saved resource")
		}
		if !inserted {
			return ErrAlreadySaved
		}

		return trackAnalytics(ctx, tx, req.ResourceID, models.AnalyticsSave)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// RemoveSaved is idempotent; the save counter drops only when a row was removed.
func (s *ActivityService) RemoveSaved(ctx context.Context, uid, resourceID string) (bool, error) {
	var removed bool
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM saved_resources WHERE user_id = $1 AND resource_id = $2", uid, resourceID)
		if err != nil {
			return errors.Wrap(err, "failed to remove saved resource")
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		if !removed {
			return nil
		}
		return trackAnalytics(ctx, tx, resourceID, models.AnalyticsUnsave)
	})
	return removed, err
}

// AddView moves the resource to the front of the history and trims it to
// the most recent entries.
func (s *ActivityService) AddView(ctx context.Context, uid, resourceID string, req models.AddViewRequest) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO viewed_resources (user_id, resource_id, title, type, source_url, viewed_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (user_id, resource_id) DO UPDATE SET
				title = EXCLUDED.title,
				type = EXCLUDED.type,
				source_url = EXCLUDED.source_url,
				viewed_at = NOW()`,
			uid, resourceID, req.Title, string(req.Type), req.SourceURL)
		if err != nil {
			return errors.Wrap(err, "failed to record view")
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM viewed_resources
			WHERE user_id = $1 AND resource_id NOT IN (
				SELECT resource_id FROM viewed_resources
				WHERE user_id = $1 ORDER BY viewed_at DESC LIMIT $2
			)`, uid, models.MaxViewHistory)
		if err != nil {
			return errors.Wrap(err, "failed to trim view history")
		}

		return trackAnalytics(ctx, tx, resourceID, models.AnalyticsView)
	})
}

func (s *ActivityService) GetViewHistory(ctx context.Context, uid string, limit int) ([]models.ViewRecord, error) {
	views := []models.ViewRecord{}
	err := s.db.SelectContext(ctx, &views, `
		SELECT user_id, resource_id, title, type, source_url, viewed_at
		FROM viewed_resources WHERE user_id = $1 ORDER BY viewed_at DESC LIMIT $2`, uid, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get view history")
	}
	return views, nil
}

func (s *ActivityService) ClearViewHistory(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM viewed_resources WHERE user_id = $1", uid); err != nil {
		return errors.Wrap(err, "failed to clear view history")
	}
	return nil
}

// AddApplication records that the user applied somewhere.
func (s *ActivityService) AddApplication(ctx context.Context, uid string, req models.CreateApplicationRequest) (*models.Application, error) {
	status := req.Status
	if status == "" {
		status = models.ApplicationPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	app := &models.Application{
		ID:         uuid.New().String(),
		UserID:     uid,
		ResourceID: req.ResourceID,
		JobTitle:   req.JobTitle,
		Company:    req.Company,
		Status:     status,
		Location:   req.Location,
		JobType:    req.JobType,
		SourceURL:  req.SourceURL,
		Notes:      req.Notes,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rows, err := sqlx.NamedQueryContext(ctx, tx, `
			INSERT INTO applications (id, user_id, resource_id, job_title, company, status, location, job_type, source_url, notes)
			VALUES (:id, :user_id, :resource_id, :job_title, :company, :status, :location, :job_type, :source_url, :notes)
			RETURNING applied_at, updated_at`, app)
		if err != nil {
			return errors.Wrap(err, "failed to add application")
		}
		if rows.Next() {
			err = rows.Scan(&app.AppliedAt, &app.UpdatedAt)
		}
		rows.Close()
		if err != nil {
			return errors.Wrap(err, "failed to read application")
		}

		if app.ResourceID == "" {
			return nil
		}
		return trackAnalytics(ctx, tx, app.ResourceID, models.AnalyticsApplication)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ActivityService) GetApplications(ctx context.Context, uid string) ([]models.Application, error) {
	apps := []models.Application{}
	err := s.db.SelectContext(ctx, &apps, `
		SELECT id, user_id, resource_id, job_title, company, status, location, job_type, source_url, notes, applied_at, updated_at
		FROM applications WHERE user_id = $1 ORDER BY applied_at DESC`, uid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get applications")
	}
	return apps, nil
}

// UpdateApplicationStatus changes an application owned by uid.
func (s *ActivityService) UpdateApplicationStatus(ctx context.Context, uid, id string, req models.UpdateApplicationRequest) error {
	if !req.Status.Valid() {
		return ErrInvalidStatus
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications SET status = $3, notes = COALESCE(NULLIF($4, ''), notes), updated_at = NOW()
		WHERE id::text = $1 AND user_id = $2`,
		id, uid, string(req.Status), req.Notes)
	if err != nil {
		return errors.Wrap(err, "failed to update application")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts the user's activity next to the size of the active catalogue.
func (s *ActivityService) Stats(ctx context.Context, uid string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM saved_resources WHERE user_id = $1),
			(SELECT COUNT(*) FROM viewed_resources WHERE user_id = $1),
			(SELECT COUNT(*) FROM applications WHERE user_id = $1),
			(SELECT COUNT(*) FROM resources WHERE status = 'active')`, uid).
		Scan(&stats.SavedResources, &stats.ViewedResources, &stats.Applications, &stats.ActiveResources)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to get user stats")
	}
	return &stats, nil
}
