// ===============================
// internal/models/user.go - User document with subscription and approval state
// ===============================

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanEnterprise
}

// Rank orders plans: free < pro < enterprise. Unknown plans rank as free.
func (p Plan) Rank() int {
	switch p {
	case PlanPro:
		return 1
	case PlanEnterprise:
		return 2
	}
	return 0
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Approver identities written when no admin was involved
const (
	ApproverSystem    = "system"
	ApproverMigration = "system_migration"
)

// User types
const (
	UserTypeUser  = "user"
	UserTypeAdmin = "admin"
)

var phonePattern = regexp.MustCompile(`^\+92[0-9]{10}$`)

// ValidPhoneNumber checks the +92XXXXXXXXXX format used at registration.
func ValidPhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NotificationSettings holds per-channel opt-ins.
type NotificationSettings struct {
	Email      bool `json:"email"`
	Push       bool `json:"push"`
	NewJobs    bool `json:"newJobs"`
	NewCourses bool `json:"newCourses"`
	NewTools   bool `json:"newTools"`
	Weekly     bool `json:"weeklyDigest"`
}

// Preferences represents the preferences JSONB column
type Preferences struct {
	Notifications                 NotificationSettings `json:"notifications"`
	Categories                    []string             `json:"categories"`
	Locations                     []string             `json:"locations"`
	BrowserNotificationsEnabled   bool                 `json:"browserNotificationsEnabled"`
	BrowserNotificationsEnabledAt *time.Time           `json:"browserNotificationsEnabledAt,omitempty"`
}

// DefaultPreferences returns the preferences given to new users.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Notifications: NotificationSettings{
			Email:      true,
			Push:       true,
			NewJobs:    true,
			NewCourses: true,
			NewTools:   true,
			Weekly:     false,
		},
		Categories: []string{},
		Locations:  []string{},
	}
}

func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Preferences) Scan(value interface{}) error {
	if value == nil {
		*p = *DefaultPreferences()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Preferences", value)
	}

	return json.Unmarshal(bytes, p)
}

// User is a row of the users table. Subscription fields are pointers because
// imported documents may lack them until they are backfilled.
type User struct {
	UID           string    `json:"uid" db:"uid"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	PhoneNumber   string    `json:"phoneNumber" db:"phone_number"`
	Location      string    `json:"location" db:"location"`
	UserType      string    `json:"userType" db:"user_type"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
	LastLogin     time.Time `json:"lastLogin" db:"last_login"`

	SelectedPlan   *Plan           `json:"selectedPlan" db:"selected_plan"`
	ApprovalStatus *ApprovalStatus `json:"approvalStatus" db:"approval_status"`
	ApprovedBy     *string         `json:"approvedBy" db:"approved_by"`
	ApprovedAt     *time.Time      `json:"approvedAt" db:"approved_at"`
	PlanExpiresAt  *time.Time      `json:"planExpiresAt" db:"plan_expires_at"`
	PlanUpdatedAt  *time.Time      `json:"planUpdatedAt" db:"plan_updated_at"`

	Preferences *Preferences `json:"preferences" db:"preferences"`
}

// Plan returns the selected plan, falling back to free.
func (u *User) Plan() Plan {
	if u.SelectedPlan == nil || !u.SelectedPlan.Valid() {
		return PlanFree
	}
	return *u.SelectedPlan
}

// Approval returns the approval status, or "" when unset.
func (u *User) Approval() ApprovalStatus {
	if u.ApprovalStatus == nil {
		return ""
	}
	return *u.ApprovalStatus
}

func (u *User) IsApproved() bool {
	return u.Approval() == ApprovalApproved
}

func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// EffectivePlan is the plan whose limits apply right now. Free users are
// always served; paid plans apply only once approved.
func (u *User) EffectivePlan() (Plan, bool) {
	plan := u.Plan()
	if plan == PlanFree {
		return PlanFree, true
	}
	return plan, u.IsApproved()
}

func (u *User) GetDisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return strings.Split(u.Email, "@")[0]
	}
	return "User"
}

// Request models

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Plan        Plan   `json:"plan"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
	Location    *string `json:"location"`
}

type UpdatePlanRequest struct {
	Plan Plan `json:"plan" binding:"required"`
}

// Validate returns every problem with the profile update.
func (r *UpdateProfileRequest) Validate() []string {
	var errors []string

	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if len(name) < MinNameLength {
			errors = append(errors, "Name must be at least 2 characters")
		}
		if len(name) > MaxNameLength {
			errors = append(errors, "Name cannot exceed 100 characters")
		}
	}

	if r.PhoneNumber != nil && *r.PhoneNumber != "" && !ValidPhoneNumber(*r.PhoneNumber) {
		errors = append(errors, "Phone number must be in format +92XXXXXXXXXX")
	}

	return errors
}

// Backfill reports which fields EnsureUserDocument changed.
type BackfillResult struct {
	Created bool     `json:"created"`
	Updated bool     `json:"updated"`
	Fields  []string `json:"fields,omitempty"`
}

type UserListResponse struct {
	Users   []User `json:"users"`
	HasMore bool   `json:"hasMore"`
	Total   int    `json:"total"`
}

const (
	MinNameLength = 2
	MaxNameLength = 100
)
