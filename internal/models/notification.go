// ===============================
// internal/models/notification.go - In-app notifications and payment proofs
// ===============================

package models

import (
	"fmt"
	"time"
)

// Notification types
const (
	NotificationGeneral      = "general"
	NotificationApproval     = "approval"
	NotificationRejection    = "rejection"
	NotificationPlanUpgrade  = "plan_upgrade"
	NotificationResource     = "resource_action"
	NotificationPaymentProof = "payment_proof"
)

type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"userId" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Type      string     `json:"type" db:"type"`
	Data      JSONMap    `json:"data" db:"data"`
	IsRead    bool       `json:"read" db:"is_read"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	ReadAt    *time.Time `json:"readAt" db:"read_at"`
}

type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	HasMore       bool           `json:"hasMore"`
	UnreadCount   int            `json:"unreadCount"`
}

// NotificationTemplate is a prepared title/body/type triple.
type NotificationTemplate struct {
	Title string
	Body  string
	Type  string
	Data  JSONMap
}

func UserApprovedTemplate(name string) NotificationTemplate {
	return NotificationTemplate{
		Title: "Account Approved! 🎉",
		Body:  fmt.Sprintf("Welcome %s! Your account has been approved. Start exploring premium resources now.", name),
		Type:  NotificationApproval,
		Data:  JSONMap{"action": "account_approved"},
	}
}

func UserRejectedTemplate(reason string) NotificationTemplate {
	if reason == "" {
		reason = "No reason provided"
	}
	return NotificationTemplate{
		Title: "Account Application Update",
		Body:  fmt.Sprintf("Your account application was not approved. Reason: %s", reason),
		Type:  NotificationRejection,
		Data:  JSONMap{"action": "account_rejected"},
	}
}

func PlanUpgradedTemplate(plan Plan) NotificationTemplate {
	return NotificationTemplate{
		Title: "Plan Upgraded! ⭐",
		Body:  fmt.Sprintf("Your plan has been upgraded to %s. Enjoy your new benefits!", plan),
		Type:  NotificationPlanUpgrade,
		Data:  JSONMap{"action": "plan_upgraded", "new_plan": string(plan)},
	}
}

func ResourceSavedTemplate(title string) NotificationTemplate {
	return NotificationTemplate{
		Title: "Resource Saved",
		Body:  fmt.Sprintf("%q has been saved to your collection.", title),
		Type:  NotificationResource,
		Data:  JSONMap{"action": "resource_saved", "resource_title": title},
	}
}

func PaymentProofTemplate(userName string, plan Plan) NotificationTemplate {
	return NotificationTemplate{
		Title: "Payment proof submitted",
		Body:  fmt.Sprintf("%s submitted a payment screenshot for the %s plan.", userName, plan),
		Type:  NotificationPaymentProof,
		Data:  JSONMap{"action": "payment_proof_submitted", "plan": string(plan)},
	}
}

// PaymentProof is a screenshot uploaded by a user requesting a paid plan.
type PaymentProof struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	Plan        Plan      `json:"plan" db:"plan"`
	FileKey     string    `json:"fileKey" db:"file_key"`
	FileURL     string    `json:"fileUrl" db:"file_url"`
	Status      string    `json:"status" db:"status"`
	SubmittedAt time.Time `json:"submittedAt" db:"submitted_at"`
}

const (
	PaymentProofSubmitted = "submitted"
	PaymentProofReviewed  = "reviewed"

	MaxPaymentProofSize = 5 * 1024 * 1024 // 5MB
)
