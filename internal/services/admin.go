// ===============================
// internal/services/admin.go - Admin moderation of users and resources
// ===============================

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"freezybe/internal/access"
	"freezybe/internal/database"
	"freezybe/internal/models"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PatchKind selects how UpdateResource interprets its patch document.
type PatchKind string

const (
	PatchMerge PatchKind = "merge" // RFC 7386
	PatchJSON  PatchKind = "json"  // RFC 6902
)

const insertResourceQuery = `
	INSERT INTO resources (id, external_id, legacy_shape, title, description, type, category, company,
		source_url, source_platform, requirements, benefits, location, duration, salary_range,
		application_deadline, status, access_level, is_featured, priority_score, view_count,
		save_count, application_count, created_by, updated_by, scraped_at, created_at, updated_at)
	VALUES (:id, :external_id, :legacy_shape, :title, :description, :type, :category, :company,
		:source_url, :source_platform, :requirements, :benefits, :location, :duration, :salary_range,
		:application_deadline, :status, :access_level, :is_featured, :priority_score, :view_count,
		:save_count, :application_count, :created_by, :updated_by, :scraped_at, :created_at, :updated_at)`

const updateResourceQuery = `
	UPDATE resources SET
		title = :title,
		description = :description,
		type = :type,
		category = :category,
		company = :company,
		source_url = :source_url,
		source_platform = :source_platform,
		requirements = :requirements,
		benefits = :benefits,
		location = :location,
		duration = :duration,
		salary_range = :salary_range,
		application_deadline = :application_deadline,
		status = :status,
		access_level = :access_level,
		is_featured = :is_featured,
		priority_score = :priority_score,
		updated_by = :updated_by,
		updated_at = :updated_at
	WHERE id = :id`

// URLSigner issues temporary links for private objects. *storage.R2Client
// implements it.
type URLSigner interface {
	SignedURL(key string) (string, error)
}

type AdminService struct {
	db            *sqlx.DB
	notifications *NotificationService
	signer        URLSigner
	logger        *zap.Logger
	now           func() time.Time
}

func NewAdminService(db *sqlx.DB, notifications *NotificationService, logger *zap.Logger) *AdminService {
	return &AdminService{db: db, notifications: notifications, logger: logger, now: time.Now}
}

// SetURLSigner makes PendingPaymentProofs hand out signed links instead of
// the stored object URL.
func (s *AdminService) SetURLSigner(signer URLSigner) {
	s.signer = signer
}

// ===============================
// AUDIT LOG
// ===============================

func recordAction(ctx context.Context, ext sqlx.ExtContext, action models.AdminAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Details == nil {
		action.Details = models.JSONMap{}
	}

	_, err := sqlx.NamedExecContext(ctx, ext, `
		INSERT INTO admin_actions (id, action, target_user, target_resource, admin_id, details)
		VALUES (:id, :action, :target_user, :target_resource, :admin_id, :details)`, action)
	if err != nil {
		return errors.Wrapf(err, "failed to record admin action %s", action.Action)
	}
	return nil
}

// toDetails turns a request struct into audit details.
func toDetails(v interface{}) models.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		return models.JSONMap{}
	}
	details := models.JSONMap{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return models.JSONMap{}
	}
	return details
}

// ActionLogs returns audit entries, newest first.
func (s *AdminService) ActionLogs(ctx context.Context, limit, offset int) ([]models.AdminAction, bool, error) {
	actions := []models.AdminAction{}
	err := s.db.SelectContext(ctx, &actions, `
		SELECT id, action, target_user, target_resource, admin_id, details, created_at
		FROM admin_actions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit+1, offset)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get admin actions")
	}

	hasMore := len(actions) > limit
	if hasMore {
		actions = actions[:limit]
	}
	return actions, hasMore, nil
}

// ===============================
// USERS
// ===============================

// notifyAfter stores notifications in tx and returns them for pushing once
// the transaction has committed.
func notifyInTx(ctx context.Context, tx *sqlx.Tx, uid string, tpl models.NotificationTemplate, out *[]*models.Notification) error {
	n := newNotification(uid, tpl)
	if err := storeNotification(ctx, tx, n); err != nil {
		return err
	}
	*out = append(*out, n)
	return nil
}

func (s *AdminService) push(pending []*models.Notification) {
	if s.notifications == nil {
		return
	}
	for _, n := range pending {
		s.notifications.Push(n)
	}
}

// ApproveUser approves a user, optionally switching their plan at the same time.
func (s *AdminService) ApproveUser(ctx context.Context, uid, adminID string, planOverride models.Plan) error {
	if planOverride != "" && !planOverride.Valid() {
		return ErrInvalidPlan
	}

	var pending []*models.Notification
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var name string
		err := tx.QueryRowxContext(ctx, `
			UPDATE users SET
				approval_status = 'approved',
				approved_by = $2,
				approved_at = NOW(),
				selected_plan = COALESCE(NULLIF($3, ''), selected_plan, 'free'),
				updated_at = NOW()
			WHERE uid = $1
			RETURNING name`, uid, adminID, string(planOverride)).Scan(&name)
		if err != nil {
			return notFound(err, "failed to approve user")
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payment_proofs SET status = $2
			WHERE user_id = $1 AND status = $3`,
			uid, models.PaymentProofReviewed, models.PaymentProofSubmitted); err != nil {
			return errors.Wrap(err, "failed to close payment proofs")
		}

		details := models.JSONMap{"plan_override": nil}
		if planOverride != "" {
			details["plan_override"] = string(planOverride)
		}
		if err := recordAction(ctx, tx, models.AdminAction{
			Action:     models.ActionApproveUser,
			TargetUser: uid,
			AdminID:    adminID,
			Details:    details,
		}); err != nil {
			return err
		}

		return notifyInTx(ctx, tx, uid, models.UserApprovedTemplate(name), &pending)
	})
	if err != nil {
		return err
	}

	s.push(pending)
	s.logger.Info("user approved", zap.String("uid", uid), zap.String("admin", adminID))
	return nil
}

// RejectUser marks the user rejected and tells them why.
func (s *AdminService) RejectUser(ctx context.Context, uid, adminID, reason string) error {
	var pending []*models.Notification
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET
				approval_status = 'rejected',
				approved_by = $2,
				approved_at = NOW(),
				updated_at = NOW()
			WHERE uid = $1`, uid, adminID)
		if err != nil {
			return errors.Wrap(err, "failed to reject user")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if err := recordAction(ctx, tx, models.AdminAction{
			Action:     models.ActionRejectUser,
			TargetUser: uid,
			AdminID:    adminID,
			Details:    models.JSONMap{"reason": reason},
		}); err != nil {
			return err
		}

		return notifyInTx(ctx, tx, uid, models.UserRejectedTemplate(reason), &pending)
	})
	if err != nil {
		return err
	}

	s.push(pending)
	s.logger.Info("user rejected", zap.String("uid", uid), zap.String("admin", adminID))
	return nil
}

// BulkApproveUsers approves every listed user in one transaction and returns
// how many rows changed.
func (s *AdminService) BulkApproveUsers(ctx context.Context, uids []string, adminID string) (int, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	var pending []*models.Notification
	approved := 0
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rows, err := tx.QueryxContext(ctx, `
			UPDATE users SET
				approval_status = 'approved',
				approved_by = $2,
				approved_at = NOW(),
				updated_at = NOW()
			WHERE uid = ANY($1)
			RETURNING uid, name`, pq.Array(uids), adminID)
		if err != nil {
			return errors.Wrap(err, "failed to bulk approve users")
		}

		type approvedUser struct {
			UID  string `db:"uid"`
			Name string `db:"name"`
		}
		var users []approvedUser
		for rows.Next() {
			var u approvedUser
			if err := rows.StructScan(&u); err != nil {
				rows.Close()
				return errors.Wrap(err, "failed to read approved user")
			}
			users = append(users, u)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errors.Wrap(err, "failed to read approved users")
		}
		rows.Close()

		for _, u := range users {
			if err := recordAction(ctx, tx, models.AdminAction{
				Action:     models.ActionApproveUser,
				TargetUser: u.UID,
				AdminID:    adminID,
				Details:    models.JSONMap{"bulk_operation": true},
			}); err != nil {
				return err
			}
			if err := notifyInTx(ctx, tx, u.UID, models.UserApprovedTemplate(u.Name), &pending); err != nil {
				return err
			}
		}
		approved = len(users)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.push(pending)
	s.logger.Info("bulk approved users", zap.Int("requested", len(uids)), zap.Int("approved", approved))
	return approved, nil
}

// UpdateUserPlan sets the plan on the admin's authority, which approves it.
func (s *AdminService) UpdateUserPlan(ctx context.Context, uid string, plan models.Plan, adminID string) error {
	if !plan.Valid() {
		return ErrInvalidPlan
	}

	var pending []*models.Notification
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var previous *string
		err := tx.QueryRowxContext(ctx, `
			UPDATE users u SET
				selected_plan = $2,
				approval_status = 'approved',
				approved_by = $3,
				approved_at = NOW(),
				plan_updated_at = NOW(),
				updated_at = NOW()
			FROM (SELECT uid, selected_plan FROM users WHERE uid = $1 FOR UPDATE) old
			WHERE u.uid = old.uid
			RETURNING old.selected_plan`, uid, string(plan), adminID).Scan(&previous)
		if err != nil {
			return notFound(err, "failed to update user plan")
		}

		details := models.JSONMap{"new_plan": string(plan), "old_plan": nil}
		if previous != nil {
			details["old_plan"] = *previous
		}
		if err := recordAction(ctx, tx, models.AdminAction{
			Action:     models.ActionUpdateUserPlan,
			TargetUser: uid,
			AdminID:    adminID,
			Details:    details,
		}); err != nil {
			return err
		}

		return notifyInTx(ctx, tx, uid, models.PlanUpgradedTemplate(plan), &pending)
	})
	if err != nil {
		return err
	}

	s.push(pending)
	return nil
}

// UpdateUser applies an admin edit. Moving a user to approved stamps the
// admin as approver.
func (s *AdminService) UpdateUser(ctx context.Context, uid string, req models.AdminUpdateUserRequest, adminID string) (*models.User, error) {
	var problems []string
	if req.SelectedPlan != nil && !req.SelectedPlan.Valid() {
		problems = append(problems, "Invalid plan")
	}
	if req.ApprovalStatus != nil && !req.ApprovalStatus.Valid() {
		problems = append(problems, "Invalid approval status")
	}
	if req.UserType != nil && *req.UserType != models.UserTypeUser && *req.UserType != models.UserTypeAdmin {
		problems = append(problems, "Invalid user type")
	}
	if req.PhoneNumber != nil && *req.PhoneNumber != "" && !models.ValidPhoneNumber(*req.PhoneNumber) {
		problems = append(problems, "Phone number must be in format +92XXXXXXXXXX")
	}
	if err := validationError(problems); err != nil {
		return nil, err
	}

	sets := []string{}
	args := map[string]interface{}{"uid": uid, "admin_id": adminID}
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = :%s", column, column))
		args[column] = value
	}
	if req.Name != nil {
		add("name", strings.TrimSpace(*req.Name))
	}
	if req.PhoneNumber != nil {
		add("phone_number", *req.PhoneNumber)
	}
	if req.Location != nil {
		add("location", *req.Location)
	}
	if req.UserType != nil {
		add("user_type", *req.UserType)
	}
	if req.SelectedPlan != nil {
		add("selected_plan", string(*req.SelectedPlan))
		sets = append(sets, "plan_updated_at = NOW()")
	}
	if req.PlanExpiresAt != nil {
		add("plan_expires_at", *req.PlanExpiresAt)
	}
	if req.ApprovalStatus != nil {
		add("approval_status", string(*req.ApprovalStatus))
		if *req.ApprovalStatus == models.ApprovalApproved {
			sets = append(sets, "approved_by = :admin_id", "approved_at = NOW()")
		}
	}
	if len(sets) == 0 {
		return nil, validationError([]string{"No fields to update"})
	}

	var user models.User
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE uid = :uid RETURNING %s",
			strings.Join(sets, ", "), userColumns)
		rows, err := sqlx.NamedQueryContext(ctx, tx, query, args)
		if err != nil {
			return errors.Wrap(err, "failed to update user")
		}
		found := rows.Next()
		if found {
			err = rows.StructScan(&user)
		}
		rows.Close()
		if err != nil {
			return errors.Wrap(err, "failed to read updated user")
		}
		if !found {
			return ErrNotFound
		}

		return recordAction(ctx, tx, models.AdminAction{
			Action:     models.ActionUpdateUser,
			TargetUser: uid,
			AdminID:    adminID,
			Details:    toDetails(req),
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user and, through cascades, their activity.
func (s *AdminService) DeleteUser(ctx context.Context, uid, adminID string) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var snapshot struct {
			Name  string  `db:"name"`
			Email string  `db:"email"`
			Plan  *string `db:"selected_plan"`
		}
		err := tx.QueryRowxContext(ctx,
			"DELETE FROM users WHERE uid = $1 RETURNING name, email, selected_plan", uid).StructScan(&snapshot)
		if err != nil {
			return notFound(err, "failed to delete user")
		}

		details := models.JSONMap{"name": snapshot.Name, "email": snapshot.Email, "plan": nil}
		if snapshot.Plan != nil {
			details["plan"] = *snapshot.Plan
		}
		return recordAction(ctx, tx, models.AdminAction{
			Action:     models.ActionDeleteUser,
			TargetUser: uid,
			AdminID:    adminID,
			Details:    details,
		})
	})
}

func (s *AdminService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE uid = $1", uid); err != nil {
		return nil, notFound(err, "failed to get user")
	}
	return &user, nil
}

// ListUsers pages over every user, newest first.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) (*models.UserListResponse, error) {
	return s.listUsers(ctx, "", limit, offset)
}

// UsersByStatus pages over users in one approval status. Users without a
// status count as pending.
func (s *AdminService) UsersByStatus(ctx context.Context, status models.ApprovalStatus, limit, offset int) (*models.UserListResponse, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.listUsers(ctx, status, limit, offset)
}

func (s *AdminService) listUsers(ctx context.Context, status models.ApprovalStatus, limit, offset int) (*models.UserListResponse, error) {
	users := []models.User{}
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &users,
			"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit+1, offset)
	} else {
		err = s.db.SelectContext(ctx, &users,
			"SELECT "+userColumns+" FROM users WHERE COALESCE(approval_status, 'pending') = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			string(status), limit+1, offset)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}
	return &models.UserListResponse{Users: users, HasMore: hasMore, Total: len(users)}, nil
}

// ===============================
// RESOURCES
// ===============================

// CreateResource validates and stores a new resource.
func (s *AdminService) CreateResource(ctx context.Context, r *models.Resource, adminID string) (*models.Resource, error) {
	if r.Status == "" {
		r.Status = models.StatusActive
	}
	if r.Type == "" {
		r.Type = models.ResourceJob
	}
	if r.AccessLevel == nil {
		level := models.AccessFree
		r.AccessLevel = &level
	}
	if r.SourcePlatform == "" {
		r.SourcePlatform = "manual"
	}
	if r.Requirements == nil {
		r.Requirements = pq.StringArray{}
	}
	if r.Benefits == nil {
		r.Benefits = pq.StringArray{}
	}
	if err := validationError(r.Validate()); err != nil {
		return nil, err
	}

	now := s.now()
	r.ID = uuid.New().String()
	r.ExternalID = nil
	r.CreatedBy = adminID
	r.UpdatedBy = adminID
	r.CreatedAt = now
	r.UpdatedAt = now

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := sqlx.NamedExecContext(ctx, tx, insertResourceQuery, r); err != nil {
			return errors.Wrap(err, "failed to create resource")
		}
		return recordAction(ctx, tx, models.AdminAction{
			Action:         models.ActionCreateResource,
			TargetResource: r.ID,
			AdminID:        adminID,
			Details:        models.JSONMap{"title": r.Title, "type": string(r.Type)},
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ApplyResourcePatch returns a copy of original with patch applied. Identity
// and bookkeeping fields cannot be patched.
func ApplyResourcePatch(original *models.Resource, patch []byte, kind PatchKind) (*models.Resource, error) {
	doc, err := json.Marshal(original)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode resource")
	}

	var patched []byte
	switch kind {
	case PatchJSON:
		ops, err := jsonpatch.DecodePatch(patch)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "invalid json patch: %v", err)
		}
		patched, err = ops.Apply(doc)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "cannot apply json patch: %v", err)
		}
	default:
		patched, err = jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, errors.Wrapf(ErrValidation, "invalid merge patch: %v", err)
		}
	}

	var updated models.Resource
	if err := json.Unmarshal(patched, &updated); err != nil {
		return nil, errors.Wrapf(ErrValidation, "patched resource is malformed: %v", err)
	}

	updated.ID = original.ID
	updated.ExternalID = original.ExternalID
	updated.LegacyShape = original.LegacyShape
	updated.ViewCount = original.ViewCount
	updated.SaveCount = original.SaveCount
	updated.ApplicationCount = original.ApplicationCount
	updated.CreatedBy = original.CreatedBy
	updated.CreatedAt = original.CreatedAt
	updated.ScrapedAt = original.ScrapedAt
	if updated.Requirements == nil {
		updated.Requirements = pq.StringArray{}
	}
	if updated.Benefits == nil {
		updated.Benefits = pq.StringArray{}
	}

	if err := validationError(updated.Validate()); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *AdminService) patchResource(ctx context.Context, tx *sqlx.Tx, id string, patch []byte, kind PatchKind, adminID string) (*models.Resource, error) {
	var original models.Resource
	err := tx.GetContext(ctx, &original,
		"SELECT "+resourceColumns+" FROM resources WHERE id::text = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "failed to load resource")
	}

	updated, err := ApplyResourcePatch(&original, patch, kind)
	if err != nil {
		return nil, err
	}
	updated.UpdatedBy = adminID
	updated.UpdatedAt = s.now()

	if _, err := sqlx.NamedExecContext(ctx, tx, updateResourceQuery, updated); err != nil {
		return nil, errors.Wrap(err, "failed to update resource")
	}

	details := models.JSONMap{}
	if err := json.Unmarshal(patch, &details); err != nil {
		details = models.JSONMap{"operations": json.RawMessage(patch)}
	}
	if err := recordAction(ctx, tx, models.AdminAction{
		Action:         models.ActionUpdateResource,
		TargetResource: updated.ID,
		AdminID:        adminID,
		Details:        details,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateResource patches one resource and revalidates it.
func (s *AdminService) UpdateResource(ctx context.Context, id string, patch []byte, kind PatchKind, adminID string) (*models.Resource, error) {
	var updated *models.Resource
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		updated, err = s.patchResource(ctx, tx, id, patch, kind, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BatchUpdateResources merge-patches several resources atomically.
func (s *AdminService) BatchUpdateResources(ctx context.Context, items []models.BatchUpdateItem, adminID string) (int, error) {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, item := range items {
			if _, err := s.patchResource(ctx, tx, item.ID, item.Patch, PatchMerge, adminID); err != nil {
				return errors.Wrapf(err, "resource %s", item.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// DeleteResource removes a resource, keeping its title in the audit log.
func (s *AdminService) DeleteResource(ctx context.Context, id, adminID string) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var deletedID, title string
		err := tx.QueryRowxContext(ctx,
			"DELETE FROM resources WHERE id::text = $1 RETURNING id, title", id).Scan(&deletedID, &title)
		if err != nil {
			return notFound(err, "failed to delete resource")
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM saved_resources WHERE resource_id = $1", deletedID); err != nil {
			return errors.Wrap(err, "failed to remove saved copies")
		}

		return recordAction(ctx, tx, models.AdminAction{
			Action:         models.ActionDeleteResource,
			TargetResource: deletedID,
			AdminID:        adminID,
			Details:        models.JSONMap{"title": title},
		})
	})
}

// ModerateResource approves (active) or rejects (removed) a resource.
func (s *AdminService) ModerateResource(ctx context.Context, id, adminID, action, reason string) error {
	var status models.ResourceStatus
	var actionName string
	switch action {
	case "approve":
		status, actionName = models.StatusActive, models.ActionApproveResource
	case "reject":
		status, actionName = models.StatusRemoved, models.ActionRejectResource
	default:
		return errors.Wrapf(ErrValidation, "unknown moderation action %q", action)
	}

	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE resources SET status = $2, updated_by = $3, updated_at = NOW()
			WHERE id::text = $1`, id, string(status), adminID)
		if err != nil {
			return errors.Wrap(err, "failed to moderate resource")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		return recordAction(ctx, tx, models.AdminAction{
			Action:         actionName,
			TargetResource: id,
			AdminID:        adminID,
			Details:        models.JSONMap{"reason": reason},
		})
	})
}

// ListAllResources pages over resources in every status.
func (s *AdminService) ListAllResources(ctx context.Context, status models.ResourceStatus, limit, offset int) (*models.ResourceListResponse, error) {
	resources := []models.Resource{}
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &resources,
			"SELECT "+resourceColumns+" FROM resources ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2", limit+1, offset)
	} else {
		err = s.db.SelectContext(ctx, &resources,
			"SELECT "+resourceColumns+" FROM resources WHERE status = $1 ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3",
			string(status), limit+1, offset)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list resources")
	}

	hasMore := len(resources) > limit
	if hasMore {
		resources = resources[:limit]
	}
	return &models.ResourceListResponse{Resources: resources, HasMore: hasMore, Total: len(resources)}, nil
}

// ===============================
// ANALYTICS
// ===============================

type keyCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (s *AdminService) countBy(ctx context.Context, query string) (map[string]int, int, error) {
	var rows []keyCount
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int, len(rows))
	total := 0
	for _, r := range rows {
		counts[r.Key] = r.Count
		total += r.Count
	}
	return counts, total, nil
}

// Analytics summarizes users and resources for the admin dashboard.
func (s *AdminService) Analytics(ctx context.Context) (*models.Analytics, error) {
	var a models.Analytics
	var err error

	if a.Users.ByStatus, a.Users.Total, err = s.countBy(ctx,
		"SELECT COALESCE(approval_status, 'pending') AS key, COUNT(*) AS count FROM users GROUP BY 1"); err != nil {
		return nil, errors.Wrap(err, "failed to count users by status")
	}
	if a.Users.ByPlan, _, err = s.countBy(ctx,
		"SELECT COALESCE(selected_plan, 'free') AS key, COUNT(*) AS count FROM users GROUP BY 1"); err != nil {
		return nil, errors.Wrap(err, "failed to count users by plan")
	}
	if a.Resources.ByType, a.Resources.Total, err = s.countBy(ctx,
		"SELECT type AS key, COUNT(*) AS count FROM resources GROUP BY 1"); err != nil {
		return nil, errors.Wrap(err, "failed to count resources by type")
	}
	if a.Resources.ByAccessLevel, _, err = s.countBy(ctx,
		"SELECT COALESCE(access_level, 'free') AS key, COUNT(*) AS count FROM resources GROUP BY 1"); err != nil {
		return nil, errors.Wrap(err, "failed to count resources by access level")
	}
	if a.Resources.ByStatus, _, err = s.countBy(ctx,
		"SELECT status AS key, COUNT(*) AS count FROM resources GROUP BY 1"); err != nil {
		return nil, errors.Wrap(err, "failed to count resources by status")
	}
	if err = s.db.GetContext(ctx, &a.PendingPaymentProofs,
		"SELECT COUNT(*) FROM payment_proofs WHERE status = $1", models.PaymentProofSubmitted); err != nil {
		return nil, errors.Wrap(err, "failed to count payment proofs")
	}

	a.GeneratedAt = s.now()
	return &a, nil
}

// PendingPaymentProofs lists screenshots waiting for review, oldest first.
func (s *AdminService) PendingPaymentProofs(ctx context.Context, limit int) ([]models.PaymentProof, error) {
	proofs := []models.PaymentProof{}
	err := s.db.SelectContext(ctx, &proofs, `
		SELECT id, user_id, plan, file_key, file_url, status, submitted_at
		FROM payment_proofs WHERE status = $1 ORDER BY submitted_at ASC LIMIT $2`,
		models.PaymentProofSubmitted, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payment proofs")
	}

	if s.signer != nil {
		for i := range proofs {
			link, err := s.signer.SignedURL(proofs[i].FileKey)
			if err != nil {
				s.logger.Warn("failed to sign payment proof", zap.String("proof_id", proofs[i].ID), zap.Error(err))
				continue
			}
			proofs[i].FileURL = link
		}
	}
	return proofs, nil
}

// ===============================
// MAINTENANCE
// ===============================

// InitializeSampleData seeds the starter catalogue into an empty resources table.
func (s *AdminService) InitializeSampleData(ctx context.Context, adminID string) (int, error) {
	var existing int
	if err := s.db.GetContext(ctx, &existing, "SELECT COUNT(*) FROM resources"); err != nil {
		return 0, errors.Wrap(err, "failed to count resources")
	}
	if existing > 0 {
		return 0, nil
	}

	samples := SampleResources()
	now := s.now()
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i := range samples {
			r := &samples[i]
			r.ID = uuid.New().String()
			r.CreatedBy = adminID
			r.UpdatedBy = adminID
			r.CreatedAt = now
			r.UpdatedAt = now
			r.ScrapedAt = &now
			if _, err := sqlx.NamedExecContext(ctx, tx, insertResourceQuery, r); err != nil {
				return errors.Wrapf(err, "failed to insert sample %q", r.Title)
			}
		}
		return recordAction(ctx, tx, models.AdminAction{
			Action:  models.ActionSampleData,
			AdminID: adminID,
			Details: models.JSONMap{"count": len(samples)},
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("sample data initialized", zap.Int("count", len(samples)))
	return len(samples), nil
}

// MigrateAccessLevels assigns an access level to every resource that has
// none, spreading the catalogue across tiers by title order.
func (s *AdminService) MigrateAccessLevels(ctx context.Context, adminID string) (models.MigrationReport, error) {
	report := models.MigrationReport{Counts: map[string]int{}}

	var all []models.Resource
	if err := s.db.SelectContext(ctx, &all,
		"SELECT "+resourceColumns+" FROM resources"); err != nil {
		return report, errors.Wrap(err, "failed to load resources")
	}
	// Case-insensitive so mixed-case catalogues split into tiers by name.
	sort.SliceStable(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Title), strings.ToLower(all[j].Title)
		if a != b {
			return a < b
		}
		return all[i].Title < all[j].Title
	})
	report.Scanned = len(all)

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, r := range all {
			if r.AccessLevel != nil && *r.AccessLevel != "" {
				continue
			}

			level := access.AssignAccessLevel(r, i, len(all))
			featured, priority := access.TierDefaults(level)
			if _, err := tx.ExecContext(ctx, `
				UPDATE resources SET access_level = $2, status = 'active', is_featured = $3,
					priority_score = $4, updated_by = $5, updated_at = NOW()
				WHERE id = $1`, r.ID, string(level), featured, priority, adminID); err != nil {
				return errors.Wrapf(err, "failed to migrate resource %s", r.ID)
			}
			report.Counts[string(level)]++
			report.Updated++
		}

		if report.Updated == 0 {
			return nil
		}
		return recordAction(ctx, tx, models.AdminAction{
			Action:  models.ActionMigrateAccess,
			AdminID: adminID,
			Details: toDetails(report),
		})
	})
	if err != nil {
		return models.MigrationReport{}, err
	}

	s.logger.Info("access levels migrated",
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", report.Updated),
		zap.Any("distribution", report.Counts))
	return report, nil
}
