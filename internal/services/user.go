// ===============================
// internal/services/user.go - User documents, subscription plan and preferences
// ===============================

package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"freezybe/internal/access"
	"freezybe/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const userColumns = `uid, name, email, phone_number, location, user_type, email_verified,
	selected_plan, approval_status, approved_by, approved_at, plan_expires_at, plan_updated_at,
	preferences, created_at, updated_at, last_login`

// IdentityRecord is what the identity provider knows about a signed-in user.
type IdentityRecord struct {
	UID           string
	Email         string
	DisplayName   string
	PhoneNumber   string
	EmailVerified bool
}

type UserService struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(db *sqlx.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger, now: time.Now}
}

// GetUser retrieves full user information
func (s *UserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE uid = $1", uid)
	if err != nil {
		return nil, notFound(err, "failed to get user")
	}
	return &user, nil
}

// IsAdmin reports whether uid is an admin. Unknown users are not admins.
func (s *UserService) IsAdmin(ctx context.Context, uid string) (bool, error) {
	var userType string
	err := s.db.QueryRowContext(ctx, "SELECT user_type FROM users WHERE uid = $1", uid).Scan(&userType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check admin")
	}
	return userType == models.UserTypeAdmin, nil
}

// NewDefaultUser builds the document given to a user signing in for the
// first time: free plan, approved by the system, default preferences.
func NewDefaultUser(rec IdentityRecord, now time.Time) *models.User {
	plan := models.PlanFree
	status := models.ApprovalApproved
	approver := models.ApproverSystem

	name := strings.TrimSpace(rec.DisplayName)
	if name == "" && rec.Email != "" {
		name = strings.Split(rec.Email, "@")[0]
	}
	if name == "" {
		name = "User"
	}

	return &models.User{
		UID:            rec.UID,
		Name:           name,
		Email:          rec.Email,
		PhoneNumber:    rec.PhoneNumber,
		UserType:       models.UserTypeUser,
		EmailVerified:  rec.EmailVerified,
		SelectedPlan:   &plan,
		ApprovalStatus: &status,
		ApprovedBy:     &approver,
		ApprovedAt:     &now,
		Preferences:    models.DefaultPreferences(),
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLogin:      now,
	}
}

// Backfill fills missing subscription and preference fields in place and
// returns the names of the fields it set. An existing approval decision is
// never changed.
func Backfill(u *models.User, now time.Time) []string {
	var fields []string

	if u.SelectedPlan == nil || !u.SelectedPlan.Valid() {
		plan := models.PlanFree
		u.SelectedPlan = &plan
		fields = append(fields, "selected_plan")
	}

	if u.ApprovalStatus == nil || !u.ApprovalStatus.Valid() {
		status := models.ApprovalPending
		if *u.SelectedPlan == models.PlanFree {
			status = models.ApprovalApproved
		}
		u.ApprovalStatus = &status
		fields = append(fields, "approval_status")
	}

	if *u.ApprovalStatus == models.ApprovalApproved {
		if u.ApprovedBy == nil || *u.ApprovedBy == "" {
			approver := models.ApproverSystem
			u.ApprovedBy = &approver
			fields = append(fields, "approved_by")
		}
		if u.ApprovedAt == nil {
			at := now
			u.ApprovedAt = &at
			fields = append(fields, "approved_at")
		}
	}

	if u.Preferences == nil {
		u.Preferences = models.DefaultPreferences()
		fields = append(fields, "preferences")
	}

	if u.UserType == "" {
		u.UserType = models.UserTypeUser
		fields = append(fields, "user_type")
	}

	return fields
}

// CreateUser inserts a new users row.
func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (uid, name, email, phone_number, location, user_type, email_verified,
			selected_plan, approval_status, approved_by, approved_at, plan_expires_at, plan_updated_at,
			preferences, created_at, updated_at, last_login)
		VALUES (:uid, :name, :email, :phone_number, :location, :user_type, :email_verified,
			:selected_plan, :approval_status, :approved_by, :approved_at, :plan_expires_at, :plan_updated_at,
			:preferences, :created_at, :updated_at, :last_login)`

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

func (s *UserService) saveBackfill(ctx context.Context, user *models.User, touchLogin bool) error {
	query := `
		UPDATE users SET
			user_type = :user_type,
			selected_plan = :selected_plan,
			approval_status = :approval_status,
			approved_by = :approved_by,
			approved_at = :approved_at,
			preferences = :preferences,
			updated_at = NOW()`
	if touchLogin {
		query += `,
			last_login = NOW()`
	}
	query += `
		WHERE uid = :uid`

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return errors.Wrap(err, "failed to backfill user")
	}
	return nil
}

// EnsureUserDocument creates the user's row on first sign-in, otherwise
// backfills missing fields and records the login.
func (s *UserService) EnsureUserDocument(ctx context.Context, rec IdentityRecord) (*models.User, models.BackfillResult, error) {
	user, err := s.GetUser(ctx, rec.UID)
	if errors.Is(err, ErrNotFound) {
		user = NewDefaultUser(rec, s.now())
		if err := s.CreateUser(ctx, user); err != nil {
			return nil, models.BackfillResult{}, err
		}
		s.logger.Info("created user document", zap.String("uid", rec.UID))
		return user, models.BackfillResult{Created: true, Updated: true}, nil
	}
	if err != nil {
		return nil, models.BackfillResult{}, err
	}

	fields := Backfill(user, s.now())
	if err := s.saveBackfill(ctx, user, true); err != nil {
		return nil, models.BackfillResult{}, err
	}

	if len(fields) > 0 {
		s.logger.Info("backfilled user document", zap.String("uid", rec.UID), zap.Strings("fields", fields))
	}
	return user, models.BackfillResult{Updated: true, Fields: fields}, nil
}

// FixUserDocument backfills an existing user without recording a login.
func (s *UserService) FixUserDocument(ctx context.Context, uid string) (models.BackfillResult, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return models.BackfillResult{}, err
	}

	fields := Backfill(user, s.now())
	if len(fields) == 0 {
		return models.BackfillResult{}, nil
	}

	if err := s.saveBackfill(ctx, user, false); err != nil {
		return models.BackfillResult{}, err
	}
	return models.BackfillResult{Updated: true, Fields: fields}, nil
}

// MigrateApprovalStatus approves a free-plan user left in another status.
func (s *UserService) MigrateApprovalStatus(ctx context.Context, uid string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			approval_status = 'approved',
			approved_by = $2,
			approved_at = NOW(),
			updated_at = NOW()
		WHERE uid = $1 AND selected_plan = 'free'
		  AND approval_status IS DISTINCT FROM 'approved'`,
		uid, models.ApproverMigration)
	if err != nil {
		return false, errors.Wrap(err, "failed to migrate approval status")
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MigrateAllApprovalStatuses runs MigrateApprovalStatus over every free-plan user.
func (s *UserService) MigrateAllApprovalStatuses(ctx context.Context) (models.MigrationReport, error) {
	var report models.MigrationReport

	if err := s.db.GetContext(ctx, &report.Scanned,
		"SELECT COUNT(*) FROM users WHERE selected_plan = 'free'"); err != nil {
		return report, errors.Wrap(err, "failed to count free users")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			approval_status = 'approved',
			approved_by = $1,
			approved_at = NOW(),
			updated_at = NOW()
		WHERE selected_plan = 'free' AND approval_status IS DISTINCT FROM 'approved'`,
		models.ApproverMigration)
	if err != nil {
		return report, errors.Wrap(err, "failed to migrate approval statuses")
	}

	n, _ := res.RowsAffected()
	report.Updated = int(n)
	s.logger.Info("migrated free plan approvals", zap.Int("scanned", report.Scanned), zap.Int("updated", report.Updated))
	return report, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	sets := []string{}
	args := map[string]interface{}{"uid": uid}
	if req.Name != nil {
		sets = append(sets, "name = :name")
		args["name"] = strings.TrimSpace(*req.Name)
	}
	if req.PhoneNumber != nil {
		sets = append(sets, "phone_number = :phone_number")
		args["phone_number"] = *req.PhoneNumber
	}
	if req.Location != nil {
		sets = append(sets, "location = :location")
		args["location"] = strings.TrimSpace(*req.Location)
	}

	if len(sets) > 0 {
		query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE uid = :uid", strings.Join(sets, ", "))
		res, err := s.db.NamedExecContext(ctx, query, args)
		if err != nil {
			return nil, errors.Wrap(err, "failed to update profile")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetUser(ctx, uid)
}

// UpdatePreferencesRequest replaces whichever preference groups are present.
type UpdatePreferencesRequest struct {
	Notifications *models.NotificationSettings `json:"notifications"`
	Categories    []string                     `json:"categories"`
	Locations     []string                     `json:"locations"`
}

// UpdateNotificationPreferences merges req into the stored preferences.
func (s *UserService) UpdateNotificationPreferences(ctx context.Context, uid string, req UpdatePreferencesRequest) (*models.Preferences, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if prefs == nil {
		prefs = models.DefaultPreferences()
	}
	if req.Notifications != nil {
		prefs.Notifications = *req.Notifications
	}
	if req.Categories != nil {
		prefs.Categories = req.Categories
	}
	if req.Locations != nil {
		prefs.Locations = req.Locations
	}

	if err := s.savePreferences(ctx, uid, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *UserService) savePreferences(ctx context.Context, uid string, prefs *models.Preferences) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET preferences = $2, updated_at = NOW() WHERE uid = $1", uid, prefs)
	if err != nil {
		return errors.Wrap(err, "failed to save preferences")
	}
	return nil
}

// EnableBrowserNotifications records that the browser granted notification permission.
func (s *UserService) EnableBrowserNotifications(ctx context.Context, uid string) (*models.Preferences, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if prefs == nil {
		prefs = models.DefaultPreferences()
	}
	now := s.now()
	prefs.BrowserNotificationsEnabled = true
	prefs.BrowserNotificationsEnabledAt = &now

	if err := s.savePreferences(ctx, uid, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// PlanChange is the outcome of a user choosing a plan.
type PlanChange struct {
	Plan           models.Plan           `json:"plan"`
	ApprovalStatus models.ApprovalStatus `json:"approvalStatus"`
	Message        string                `json:"message"`
}

// UpdatePlan switches the user's plan. The free plan is granted at once;
// paid plans go back to pending until an admin has verified payment.
func (s *UserService) UpdatePlan(ctx context.Context, uid string, plan models.Plan) (*PlanChange, error) {
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	var (
		status   = models.ApprovalPending
		approver *string
		approved *time.Time
		message  = fmt.Sprintf("Plan updated to %s. Please send payment screenshot via WhatsApp for admin approval.", plan)
	)
	if plan == models.PlanFree {
		now := s.now()
		system := models.ApproverSystem
		status = models.ApprovalApproved
		approver = &system
		approved = &now
		message = fmt.Sprintf("Plan updated to %s. Access granted immediately.", plan)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			selected_plan = $2,
			approval_status = $3,
			approved_by = $4,
			approved_at = $5,
			plan_updated_at = NOW(),
			updated_at = NOW()
		WHERE uid = $1`,
		uid, string(plan), string(status), approver, approved)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if plan.IsPaid() {
		s.logger.Info("paid plan requested, awaiting payment verification",
			zap.String("uid", uid), zap.String("plan", string(plan)))
	}

	return &PlanChange{Plan: plan, ApprovalStatus: status, Message: message}, nil
}

// AccessCheck explains whether a user may open a resource of a given level.
type AccessCheck struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    string `json:"reason,omitempty"`
}

// CheckResourceAccess decides whether user may open a resource at level.
// Demo content is open to everyone.
func CheckResourceAccess(user *models.User, level models.AccessLevel) AccessCheck {
	if level == models.AccessDemo {
		return AccessCheck{HasAccess: true}
	}

	plan, ok := user.EffectivePlan()
	if !ok {
		return AccessCheck{Reason: "Account pending approval"}
	}
	if !access.CanView(plan, level) {
		return AccessCheck{Reason: fmt.Sprintf("Requires %s plan or higher", level)}
	}
	return AccessCheck{HasAccess: true}
}
