// ===============================
// internal/models/admin.go - Admin audit log and dashboard analytics
// ===============================

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is stored as JSONB.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// Admin action names written to admin_actions
const (
	ActionApproveUser      = "user_approved"
	ActionRejectUser       = "user_rejected"
	ActionUpdateUserPlan   = "plan_updated"
	ActionUpdateUser       = "user_updated"
	ActionDeleteUser       = "user_deleted"
	ActionCreateResource   = "resource_created"
	ActionUpdateResource   = "resource_updated"
	ActionDeleteResource   = "resource_deleted"
	ActionApproveResource  = "resource_approve"
	ActionRejectResource   = "resource_reject"
	ActionImportFirestore  = "firestore_imported"
	ActionMigrateAccess    = "access_levels_migrated"
	ActionMigrateApprovals = "approval_statuses_migrated"
	ActionSampleData       = "sample_data_initialized"
)

type AdminAction struct {
	ID             string    `json:"id" db:"id"`
	Action         string    `json:"action" db:"action"`
	TargetUser     string    `json:"targetUser,omitempty" db:"target_user"`
	TargetResource string    `json:"targetResource,omitempty" db:"target_resource"`
	AdminID        string    `json:"adminId" db:"admin_id"`
	Details        JSONMap   `json:"details" db:"details"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type Analytics struct {
	Users struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"byStatus"`
		ByPlan   map[string]int `json:"byPlan"`
	} `json:"users"`
	Resources struct {
		Total         int            `json:"total"`
		ByType        map[string]int `json:"byType"`
		ByAccessLevel map[string]int `json:"byAccessLevel"`
		ByStatus      map[string]int `json:"byStatus"`
	} `json:"resources"`
	PendingPaymentProofs int       `json:"pendingPaymentProofs"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

type ApproveUserRequest struct {
	Plan Plan `json:"plan"`
}

type RejectUserRequest struct {
	Reason string `json:"reason"`
}

type BulkApproveRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// AdminUpdateUserRequest lists the fields an admin may change on a user.
type AdminUpdateUserRequest struct {
	Name           *string         `json:"name"`
	PhoneNumber    *string         `json:"phoneNumber"`
	Location       *string         `json:"location"`
	UserType       *string         `json:"userType"`
	SelectedPlan   *Plan           `json:"selectedPlan"`
	ApprovalStatus *ApprovalStatus `json:"approvalStatus"`
	PlanExpiresAt  *time.Time      `json:"planExpiresAt"`
}

type ModerateResourceRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

type BatchUpdateItem struct {
	ID    string          `json:"id" binding:"required"`
	Patch json.RawMessage `json:"patch" binding:"required"`
}

type BatchUpdateRequest struct {
	Updates []BatchUpdateItem `json:"updates" binding:"required,min=1"`
}

// MigrationReport summarizes a bulk backfill.
type MigrationReport struct {
	Scanned int            `json:"scanned"`
	Updated int            `json:"updated"`
	Counts  map[string]int `json:"counts,omitempty"`
}

// ImportReport summarizes a legacy document import.
type ImportReport struct {
	Collection string         `json:"collection"`
	Scanned    int            `json:"scanned"`
	Imported   int            `json:"imported"`
	Skipped    int            `json:"skipped"`
	Shapes     map[string]int `json:"shapes,omitempty"`
}
