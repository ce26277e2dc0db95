// ===============================
// internal/services/importer.go - Import of legacy resources, users and admins
// ===============================

package services

import (
	"context"
	"time"

	"freezybe/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Legacy collection names
const (
	CollectionResources = "resources"
	CollectionUsers     = "users"
	CollectionAdmins    = "admins"
)

const upsertImportedResource = `
	INSERT INTO resources (id, external_id, legacy_shape, title, description, type, category, company,
		source_url, source_platform, requirements, benefits, location, duration, salary_range,
		application_deadline, status, access_level, is_featured, priority_score, view_count,
		save_count, application_count, created_by, updated_by, scraped_at, created_at, updated_at)
	VALUES (:id, :external_id, :legacy_shape, :title, :description, :type, :category, :company,
		:source_url, :source_platform, :requirements, :benefits, :location, :duration, :salary_range,
		:application_deadline, :status, :access_level, :is_featured, :priority_score, :view_count,
		:save_count, :application_count, :created_by, :updated_by, :scraped_at, :created_at, :updated_at)
	ON CONFLICT (external_id) DO UPDATE SET
		legacy_shape = EXCLUDED.legacy_shape,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		type = EXCLUDED.type,
		category = EXCLUDED.category,
		company = EXCLUDED.company,
		source_url = EXCLUDED.source_url,
		source_platform = EXCLUDED.source_platform,
		requirements = EXCLUDED.requirements,
		benefits = EXCLUDED.benefits,
		location = EXCLUDED.location,
		duration = EXCLUDED.duration,
		salary_range = EXCLUDED.salary_range,
		application_deadline = EXCLUDED.application_deadline,
		view_count = GREATEST(resources.view_count, EXCLUDED.view_count),
		save_count = GREATEST(resources.save_count, EXCLUDED.save_count),
		application_count = GREATEST(resources.application_count, EXCLUDED.application_count),
		updated_by = EXCLUDED.updated_by,
		updated_at = EXCLUDED.updated_at`

const insertImportedUser = `
	INSERT INTO users (uid, name, email, phone_number, location, user_type, email_verified,
		selected_plan, approval_status, approved_by, approved_at, plan_expires_at, plan_updated_at,
		preferences, created_at, updated_at, last_login)
	VALUES (:uid, :name, :email, :phone_number, :location, :user_type, :email_verified,
		:selected_plan, :approval_status, :approved_by, :approved_at, :plan_expires_at, :plan_updated_at,
		:preferences, :created_at, :updated_at, :last_login)
	ON CONFLICT (uid) DO NOTHING`

// Importer copies legacy Firestore documents into PostgreSQL. Moderation
// decisions made here (status, access level, featured) are never overwritten
// by a later import.
type Importer struct {
	db     *sqlx.DB
	source DocumentSource
	logger *zap.Logger
	now    func() time.Time
}

func NewImporter(db *sqlx.DB, source DocumentSource, logger *zap.Logger) *Importer {
	return &Importer{db: db, source: source, logger: logger, now: time.Now}
}

// ImportResources upserts every resource document by its document ID.
func (im *Importer) ImportResources(ctx context.Context, actor string) (models.ImportReport, error) {
	report := models.ImportReport{Collection: CollectionResources, Shapes: map[string]int{}}

	err := im.source.Each(ctx, CollectionResources, func(id string, data map[string]interface{}) error {
		report.Scanned++

		r, ok := models.NormalizeResourceDocument(id, data)
		if !ok {
			report.Skipped++
			return nil
		}
		if problems := r.ValidateImported(); len(problems) > 0 {
			im.logger.Debug("skipping invalid legacy resource", zap.String("id", id), zap.Strings("problems", problems))
			report.Skipped++
			return nil
		}

		now := im.now()
		externalID := id
		r.ID = uuid.New().String()
		r.ExternalID = &externalID
		r.CreatedBy = actor
		r.UpdatedBy = actor
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		if r.Requirements == nil {
			r.Requirements = pq.StringArray{}
		}
		if r.Benefits == nil {
			r.Benefits = pq.StringArray{}
		}

		if _, err := im.db.NamedExecContext(ctx, upsertImportedResource, r); err != nil {
			return errors.Wrapf(err, "failed to import resource %s", id)
		}
		report.Imported++
		report.Shapes[r.LegacyShape]++
		return nil
	})
	if err != nil {
		return report, err
	}

	im.finish(ctx, actor, report)
	return report, nil
}

// ImportUsers inserts legacy users that have no row yet and backfills their
// missing subscription fields.
func (im *Importer) ImportUsers(ctx context.Context, actor string) (models.ImportReport, error) {
	report := models.ImportReport{Collection: CollectionUsers}

	err := im.source.Each(ctx, CollectionUsers, func(id string, data map[string]interface{}) error {
		report.Scanned++

		u, ok := models.NormalizeUserDocument(id, data)
		if !ok {
			report.Skipped++
			return nil
		}
		Backfill(&u, im.now())

		res, err := im.db.NamedExecContext(ctx, insertImportedUser, &u)
		if err != nil {
			return errors.Wrapf(err, "failed to import user %s", id)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			report.Skipped++
			return nil
		}
		report.Imported++
		return nil
	})
	if err != nil {
		return report, err
	}

	im.finish(ctx, actor, report)
	return report, nil
}

// ImportAdmins promotes every user listed in the legacy admins collection.
func (im *Importer) ImportAdmins(ctx context.Context, actor string) (models.ImportReport, error) {
	report := models.ImportReport{Collection: CollectionAdmins}

	err := im.source.Each(ctx, CollectionAdmins, func(id string, _ map[string]interface{}) error {
		report.Scanned++
		res, err := im.db.ExecContext(ctx,
			"UPDATE users SET user_type = 'admin', updated_at = NOW() WHERE uid = $1 AND user_type <> 'admin'", id)
		if err != nil {
			return errors.Wrapf(err, "failed to promote admin %s", id)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			report.Skipped++
			return nil
		}
		report.Imported++
		return nil
	})
	if err != nil {
		return report, err
	}

	im.finish(ctx, actor, report)
	return report, nil
}

// ImportAll runs users, admins and resources in that order.
func (im *Importer) ImportAll(ctx context.Context, actor string) ([]models.ImportReport, error) {
	steps := []func(context.Context, string) (models.ImportReport, error){
		im.ImportUsers,
		im.ImportAdmins,
		im.ImportResources,
	}

	reports := make([]models.ImportReport, 0, len(steps))
	for _, step := range steps {
		report, err := step(ctx, actor)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// RunPeriodic imports everything every interval until ctx is cancelled.
func (im *Importer) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	im.logger.Info("firestore sync started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			im.logger.Info("firestore sync stopped")
			return
		case <-ticker.C:
			if _, err := im.ImportAll(ctx, models.ApproverSystem); err != nil {
				im.logger.Error("firestore sync failed", zap.Error(err))
			}
		}
	}
}

func (im *Importer) finish(ctx context.Context, actor string, report models.ImportReport) {
	im.logger.Info("legacy import finished",
		zap.String("collection", report.Collection),
		zap.Int("scanned", report.Scanned),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))

	if report.Imported == 0 {
		return
	}
	if err := recordAction(ctx, im.db, models.AdminAction{
		Action:  models.ActionImportFirestore,
		AdminID: actor,
		Details: toDetails(report),
	}); err != nil {
		im.logger.Warn("failed to record import", zap.Error(err))
	}
}
