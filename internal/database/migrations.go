// ===============================
// internal/database/migrations.go - Schema for users, resources and moderation
// ===============================

package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Migration struct {
	Version string
	Query   string
}

// Migrations is the ordered schema history. Append only.
var Migrations = []Migration{
	{
		Version: "001_users",
		Query: `
			-- Subscription and preference columns are nullable on purpose: rows imported
			-- from the legacy document store may lack them and are repaired on login.
			CREATE TABLE IF NOT EXISTS users (
				uid VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT 'User',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone_number VARCHAR(20) NOT NULL DEFAULT '',
				location VARCHAR(255) NOT NULL DEFAULT '',
				user_type VARCHAR(20) NOT NULL DEFAULT 'user',
				email_verified BOOLEAN NOT NULL DEFAULT false,
				selected_plan VARCHAR(20),
				approval_status VARCHAR(20),
				approved_by VARCHAR(255),
				approved_at TIMESTAMP WITH TIME ZONE,
				plan_expires_at TIMESTAMP WITH TIME ZONE,
				plan_updated_at TIMESTAMP WITH TIME ZONE,
				preferences JSONB,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				last_login TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT users_user_type_check CHECK (user_type IN ('user', 'admin')),
				CONSTRAINT users_plan_check CHECK (selected_plan IS NULL OR selected_plan IN ('free', 'pro', 'enterprise')),
				CONSTRAINT users_approval_check CHECK (approval_status IS NULL OR approval_status IN ('pending', 'approved', 'rejected'))
			);

			CREATE INDEX IF NOT EXISTS idx_users_approval_created ON users(approval_status, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_users_plan ON users(selected_plan);
		`,
	},
	{
		Version: "002_resources",
		Query: `
			CREATE TABLE IF NOT EXISTS resources (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				external_id VARCHAR(255) UNIQUE,
				legacy_shape VARCHAR(10) NOT NULL DEFAULT '',
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				type VARCHAR(20) NOT NULL DEFAULT 'job',
				category VARCHAR(100) NOT NULL DEFAULT '',
				company VARCHAR(255) NOT NULL DEFAULT '',
				source_url TEXT NOT NULL DEFAULT '',
				source_platform VARCHAR(100) NOT NULL DEFAULT 'manual',
				requirements TEXT[] NOT NULL DEFAULT '{}',
				benefits TEXT[] NOT NULL DEFAULT '{}',
				location VARCHAR(255) NOT NULL DEFAULT '',
				duration VARCHAR(100) NOT NULL DEFAULT '',
				salary_range VARCHAR(100),
				application_deadline TIMESTAMP WITH TIME ZONE,
				status VARCHAR(20) NOT NULL DEFAULT 'active',
				access_level VARCHAR(20),
				is_featured BOOLEAN NOT NULL DEFAULT false,
				priority_score INTEGER NOT NULL DEFAULT 0,
				view_count INTEGER NOT NULL DEFAULT 0,
				save_count INTEGER NOT NULL DEFAULT 0,
				application_count INTEGER NOT NULL DEFAULT 0,
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				updated_by VARCHAR(255) NOT NULL DEFAULT '',
				scraped_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT resources_type_check CHECK (type IN ('job', 'internship', 'course', 'tool')),
				CONSTRAINT resources_status_check CHECK (status IN ('active', 'inactive', 'pending', 'removed')),
				CONSTRAINT resources_access_check CHECK (access_level IS NULL OR access_level IN ('demo', 'free', 'pro', 'enterprise')),
				CONSTRAINT resources_counts_check CHECK (view_count >= 0 AND save_count >= 0 AND application_count >= 0)
			);

			CREATE INDEX IF NOT EXISTS idx_resources_active_priority ON resources(status, priority_score DESC, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_resources_type_category ON resources(type, category) WHERE status = 'active';
			CREATE INDEX IF NOT EXISTS idx_resources_featured ON resources(is_featured, priority_score DESC) WHERE status = 'active';
		`,
	},
	{
		Version: "003_user_activity",
		Query: `
			CREATE TABLE IF NOT EXISTS saved_resources (
				user_id VARCHAR(255) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
				resource_id VARCHAR(255) NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				type VARCHAR(20) NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				location VARCHAR(255) NOT NULL DEFAULT '',
				duration VARCHAR(100) NOT NULL DEFAULT '',
				source_url TEXT NOT NULL DEFAULT '',
				saved_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, resource_id)
			);

			CREATE TABLE IF NOT EXISTS viewed_resources (
				user_id VARCHAR(255) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
				resource_id VARCHAR(255) NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				type VARCHAR(20) NOT NULL DEFAULT '',
				source_url TEXT NOT NULL DEFAULT '',
				viewed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, resource_id)
			);

			CREATE INDEX IF NOT EXISTS idx_viewed_user_time ON viewed_resources(user_id, viewed_at DESC);

			CREATE TABLE IF NOT EXISTS applications (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id VARCHAR(255) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
				resource_id VARCHAR(255) NOT NULL DEFAULT '',
				job_title TEXT NOT NULL,
				company VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				location VARCHAR(255) NOT NULL DEFAULT '',
				job_type VARCHAR(50) NOT NULL DEFAULT '',
				source_url TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_applications_user_time ON applications(user_id, applied_at DESC);
		`,
	},
	{
		Version: "004_moderation",
		Query: `
			CREATE TABLE IF NOT EXISTS admin_actions (
				id UUID PRIMARY KEY,
				action VARCHAR(50) NOT NULL,
				target_user VARCHAR(255) NOT NULL DEFAULT '',
				target_resource VARCHAR(255) NOT NULL DEFAULT '',
				admin_id VARCHAR(255) NOT NULL,
				details JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_admin_actions_time ON admin_actions(created_at DESC);

			CREATE TABLE IF NOT EXISTS notifications (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL DEFAULT 'general',
				data JSONB NOT NULL DEFAULT '{}',
				is_read BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
				read_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_notifications_user_time ON notifications(user_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS payment_proofs (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
				plan VARCHAR(20) NOT NULL,
				file_key TEXT NOT NULL,
				file_url TEXT NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'submitted',
				submitted_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_payment_proofs_status ON payment_proofs(status, submitted_at DESC);
		`,
	},
}

func RunMigrations(db *sqlx.DB, logger *zap.Logger) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			version VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range Migrations {
		if err := applyMigration(db, migration, logger); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
	}

	logger.Info("migrations completed", zap.Int("count", len(Migrations)))
	return nil
}

func applyMigration(db *sqlx.DB, migration Migration, logger *zap.Logger) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = $1", migration.Version).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if count > 0 {
		logger.Debug("migration already applied", zap.String("version", migration.Version))
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(migration.Query); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
	}

	if _, err = tx.Exec("INSERT INTO migrations (version) VALUES ($1)", migration.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", migration.Version, err)
	}

	logger.Info("migration applied", zap.String("version", migration.Version))
	return nil
}
