// ===============================
// internal/models/activity.go - Saved resources, view history and applications
// ===============================

package models

import "time"

// SavedResource is a snapshot of a resource taken when the user saved it.
type SavedResource struct {
	UserID      string       `json:"-" db:"user_id"`
	ResourceID  string       `json:"id" db:"resource_id"`
	Title       string       `json:"title" db:"title"`
	Type        ResourceType `json:"type" db:"type"`
	Description string       `json:"description" db:"description"`
	Location    string       `json:"location" db:"location"`
	Duration    string       `json:"duration" db:"duration"`
	SourceURL   string       `json:"sourceUrl" db:"source_url"`
	SavedAt     time.Time    `json:"savedAt" db:"saved_at"`
}

type ViewRecord struct {
	UserID     string       `json:"-" db:"user_id"`
	ResourceID string       `json:"id" db:"resource_id"`
	Title      string       `json:"title" db:"title"`
	Type       ResourceType `json:"type" db:"type"`
	SourceURL  string       `json:"sourceUrl" db:"source_url"`
	ViewedAt   time.Time    `json:"viewedAt" db:"viewed_at"`
}

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApplied   ApplicationStatus = "applied"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffered   ApplicationStatus = "offered"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationAccepted  ApplicationStatus = "accepted"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApplied, ApplicationInterview,
		ApplicationOffered, ApplicationRejected, ApplicationAccepted:
		return true
	}
	return false
}

type Application struct {
	ID         string            `json:"id" db:"id"`
	UserID     string            `json:"-" db:"user_id"`
	ResourceID string            `json:"resourceId" db:"resource_id"`
	JobTitle   string            `json:"jobTitle" db:"job_title"`
	Company    string            `json:"company" db:"company"`
	Status     ApplicationStatus `json:"status" db:"status"`
	Location   string            `json:"location" db:"location"`
	JobType    string            `json:"jobType" db:"job_type"`
	SourceURL  string            `json:"sourceUrl" db:"source_url"`
	Notes      string            `json:"notes" db:"notes"`
	AppliedAt  time.Time         `json:"appliedAt" db:"applied_at"`
	UpdatedAt  time.Time         `json:"updatedAt" db:"updated_at"`
}

type SaveResourceRequest struct {
	ResourceID  string       `json:"id" binding:"required"`
	Title       string       `json:"title" binding:"required"`
	Type        ResourceType `json:"type"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Duration    string       `json:"duration"`
	SourceURL   string       `json:"sourceUrl"`
}

type AddViewRequest struct {
	Title     string       `json:"title"`
	Type      ResourceType `json:"type"`
	SourceURL string       `json:"sourceUrl"`
}

type CreateApplicationRequest struct {
	ResourceID string            `json:"resourceId"`
	JobTitle   string            `json:"jobTitle" binding:"required"`
	Company    string            `json:"company"`
	Status     ApplicationStatus `json:"status"`
	Location   string            `json:"location"`
	JobType    string            `json:"jobType"`
	SourceURL  string            `json:"sourceUrl"`
	Notes      string            `json:"notes"`
}

type UpdateApplicationRequest struct {
	Status ApplicationStatus `json:"status" binding:"required"`
	Notes  string            `json:"notes"`
}

type UserStats struct {
	SavedResources  int `json:"savedResources"`
	ViewedResources int `json:"viewedResources"`
	Applications    int `json:"applications"`
	ActiveResources int `json:"totalResourcesAvailable"`
}

const MaxViewHistory = 100
