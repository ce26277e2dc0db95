// ===============================
// internal/models/resource.go - Resource listings (jobs, internships, courses, tools)
// ===============================

package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

type ResourceType string

const (
	ResourceJob        ResourceType = "job"
	ResourceInternship ResourceType = "internship"
	ResourceCourse     ResourceType = "course"
	ResourceTool       ResourceType = "tool"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceJob, ResourceInternship, ResourceCourse, ResourceTool:
		return true
	}
	return false
}

type ResourceStatus string

const (
	StatusActive   ResourceStatus = "active"
	StatusInactive ResourceStatus = "inactive"
	StatusPending  ResourceStatus = "pending"
	StatusRemoved  ResourceStatus = "removed"
)

func (s ResourceStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusRemoved:
		return true
	}
	return false
}

// IsActive treats a missing status as active, as imported documents often omit it.
func (s ResourceStatus) IsActive() bool {
	return s == "" || s == StatusActive
}

type AccessLevel string

const (
	AccessDemo       AccessLevel = "demo"
	AccessFree       AccessLevel = "free"
	AccessPro        AccessLevel = "pro"
	AccessEnterprise AccessLevel = "enterprise"
)

func (a AccessLevel) Valid() bool {
	switch a {
	case AccessDemo, AccessFree, AccessPro, AccessEnterprise:
		return true
	}
	return false
}

// Rank places demo and free at 0, pro at 1, enterprise at 2. Unknown levels
// rank as free.
func (a AccessLevel) Rank() int {
	switch a {
	case AccessPro:
		return 1
	case AccessEnterprise:
		return 2
	}
	return 0
}

// Legacy document shapes
const (
	ShapeNested = "nested"
	ShapeFlat   = "flat"
)

type Resource struct {
	ID                  string         `json:"id" db:"id"`
	ExternalID          *string        `json:"externalId,omitempty" db:"external_id"`
	LegacyShape         string         `json:"legacyShape,omitempty" db:"legacy_shape"`
	Title               string         `json:"title" db:"title"`
	Description         string         `json:"description" db:"description"`
	Type                ResourceType   `json:"type" db:"type"`
	Category            string         `json:"category" db:"category"`
	Company             string         `json:"company" db:"company"`
	SourceURL           string         `json:"sourceUrl" db:"source_url"`
	SourcePlatform      string         `json:"sourcePlatform" db:"source_platform"`
	Requirements        pq.StringArray `json:"requirements" db:"requirements"`
	Benefits            pq.StringArray `json:"benefits" db:"benefits"`
	Location            string         `json:"location" db:"location"`
	Duration            string         `json:"duration" db:"duration"`
	SalaryRange         *string        `json:"salaryRange" db:"salary_range"`
	ApplicationDeadline *time.Time     `json:"applicationDeadline" db:"application_deadline"`
	Status              ResourceStatus `json:"status" db:"status"`
	AccessLevel         *AccessLevel   `json:"accessLevel" db:"access_level"`
	IsFeatured          bool           `json:"isFeatured" db:"is_featured"`
	PriorityScore       int            `json:"priorityScore" db:"priority_score"`
	ViewCount           int            `json:"viewCount" db:"view_count"`
	SaveCount           int            `json:"saveCount" db:"save_count"`
	ApplicationCount    int            `json:"applicationCount" db:"application_count"`
	CreatedBy           string         `json:"createdBy" db:"created_by"`
	UpdatedBy           string         `json:"updatedBy" db:"updated_by"`
	ScrapedAt           *time.Time     `json:"scrapedAt" db:"scraped_at"`
	CreatedAt           time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time      `json:"updatedAt" db:"updated_at"`
}

// Access returns the access level, falling back to free.
func (r *Resource) Access() AccessLevel {
	if r.AccessLevel == nil || *r.AccessLevel == "" {
		return AccessFree
	}
	return *r.AccessLevel
}

// Validate returns every problem with a resource about to be stored.
func (r *Resource) Validate() []string {
	return r.validate(true)
}

// ValidateImported checks a legacy document. Old documents often lack a
// description, so only the title is required.
func (r *Resource) ValidateImported() []string {
	return r.validate(false)
}

func (r *Resource) validate(requireDescription bool) []string {
	var errors []string

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, "Title is required")
	}
	if len(r.Title) > MaxTitleLength {
		errors = append(errors, "Title cannot exceed 300 characters")
	}
	if requireDescription && strings.TrimSpace(r.Description) == "" {
		errors = append(errors, "Description is required")
	}
	if !r.Type.Valid() {
		errors = append(errors, "Type must be one of job, internship, course, tool")
	}
	if r.Status != "" && !r.Status.Valid() {
		errors = append(errors, "Invalid status")
	}
	if r.AccessLevel != nil && !r.AccessLevel.Valid() {
		errors = append(errors, "Invalid access level")
	}
	if r.SourceURL != "" {
		if _, err := url.Parse(r.SourceURL); err != nil {
			errors = append(errors, "Source URL is not a valid URL")
		}
	}
	if r.PriorityScore < 0 {
		errors = append(errors, "Priority score cannot be negative")
	}

	return errors
}

// ResourceFilters narrow the active resource listing.
type ResourceFilters struct {
	Type        ResourceType `form:"type"`
	Category    string       `form:"category"`
	AccessLevel AccessLevel  `form:"accessLevel"`
	Featured    bool         `form:"featured"`
	SortBy      string       `form:"sortBy"`
	SortOrder   string       `form:"sortOrder"`

	// Levels restricts results to these access levels. Set by the server
	// from the caller's plan, never bound from the query.
	Levels []AccessLevel `form:"-"`
}

type ResourceListResponse struct {
	Resources []Resource `json:"resources"`
	HasMore   bool       `json:"hasMore"`
	Total     int        `json:"total"`
}

// AnalyticsKind is a counter bumped by TrackAnalytics.
type AnalyticsKind string

const (
	AnalyticsView        AnalyticsKind = "view"
	AnalyticsSave        AnalyticsKind = "save"
	AnalyticsUnsave      AnalyticsKind = "unsave"
	AnalyticsApplication AnalyticsKind = "application"
)

const (
	MaxTitleLength = 300
)

// NormalizeResourceDocument converts a legacy document into a Resource.
// Nested documents keep their fields under metadata/content/visibility/analytics;
// flat documents keep them at the top level. Only visibility.access_level
// counts as an assigned level: without it AccessLevel stays nil, the resource
// is served as free and MigrateAccessLevels may tier it later.
// ok is false when the document carries no title in either shape.
func NormalizeResourceDocument(id string, doc map[string]interface{}) (Resource, bool) {
	if metadata, isMap := doc["metadata"].(map[string]interface{}); isMap && stringField(metadata, "title") != "" {
		return normalizeNested(id, doc, metadata), true
	}
	if stringField(doc, "title") != "" {
		return normalizeFlat(id, doc), true
	}
	return Resource{}, false
}

func normalizeNested(id string, doc, metadata map[string]interface{}) Resource {
	content := mapField(doc, "content")
	visibility := mapField(doc, "visibility")
	analytics := mapField(doc, "analytics")

	r := baseResource(id, ShapeNested)
	r.Title = stringField(metadata, "title")
	r.Description = stringField(metadata, "description")
	r.Type = resourceTypeField(metadata, "type")
	r.Category = stringField(metadata, "category")
	r.SourceURL = stringField(metadata, "source_url")
	if platform := stringField(metadata, "source_platform"); platform != "" {
		r.SourcePlatform = platform
	}
	r.ScrapedAt = timeField(metadata, "scraped_at")

	r.Requirements = ParseResourceArray(content["requirements"])
	r.Benefits = ParseResourceArray(content["benefits"])
	r.Location = stringField(content, "location")
	r.Duration = stringField(content, "duration")
	r.Company = stringField(content, "company")
	if r.Company == "" {
		r.Company = stringField(metadata, "company")
	}
	if salary := stringField(content, "salary_range"); salary != "" {
		r.SalaryRange = &salary
	}
	r.ApplicationDeadline = timeField(content, "application_deadline")

	status := ResourceStatus(stringField(visibility, "status"))
	if status == "" {
		status = ResourceStatus(stringField(doc, "status"))
	}
	if status == "" {
		status = StatusActive
	}
	r.Status = status

	if level := AccessLevel(stringField(visibility, "access_level")); level.Valid() {
		r.AccessLevel = &level
	}
	r.IsFeatured = boolField(visibility, "is_featured")
	r.PriorityScore = intField(visibility, "priority_score")

	r.ViewCount = intField(analytics, "view_count")
	r.SaveCount = intField(analytics, "save_count")
	r.ApplicationCount = intField(analytics, "application_count")

	if created := timeField(doc, "created_at"); created != nil {
		r.CreatedAt = *created
	} else if r.ScrapedAt != nil {
		r.CreatedAt = *r.ScrapedAt
	}
	r.CreatedBy = stringField(doc, "created_by")
	return r
}

func normalizeFlat(id string, doc map[string]interface{}) Resource {
	r := baseResource(id, ShapeFlat)
	r.Title = stringField(doc, "title")
	r.Description = stringField(doc, "description")
	r.Type = resourceTypeField(doc, "type")
	r.Category = stringField(doc, "category")
	r.Company = stringField(doc, "company")
	r.SourceURL = stringField(doc, "source_url")
	if r.SourceURL == "" {
		r.SourceURL = stringField(doc, "url")
	}
	if platform := stringField(doc, "source_platform"); platform != "" {
		r.SourcePlatform = platform
	}
	r.Requirements = ParseResourceArray(doc["requirements"])
	r.Benefits = ParseResourceArray(doc["benefits"])
	r.Location = stringField(doc, "location")
	r.Duration = stringField(doc, "duration")
	if salary := stringField(doc, "salary_range"); salary != "" {
		r.SalaryRange = &salary
	}
	r.ApplicationDeadline = timeField(doc, "application_deadline")

	r.Status = ResourceStatus(stringField(doc, "status"))
	if r.Status == "" {
		r.Status = StatusActive
	}
	r.IsFeatured = boolField(doc, "is_featured")
	r.PriorityScore = intField(doc, "priority_score")
	r.ViewCount = intField(doc, "view_count")
	r.SaveCount = intField(doc, "save_count")
	r.ApplicationCount = intField(doc, "application_count")

	if created := timeField(doc, "created_at"); created != nil {
		r.CreatedAt = *created
	} else if created := timeField(doc, "createdAt"); created != nil {
		r.CreatedAt = *created
	}
	r.CreatedBy = stringField(doc, "created_by")
	return r
}

func baseResource(id, shape string) Resource {
	externalID := id
	return Resource{
		ID:             id,
		ExternalID:     &externalID,
		LegacyShape:    shape,
		Type:           ResourceJob,
		SourcePlatform: "manual",
		Requirements:   pq.StringArray{},
		Benefits:       pq.StringArray{},
	}
}

// ParseResourceArray accepts a list or a delimited string (",", ";" or "|")
// and returns the trimmed non-empty entries.
func ParseResourceArray(value interface{}) pq.StringArray {
	out := pq.StringArray{}

	switch v := value.(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		parts := strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ';' || r == '|'
		})
		for _, s := range parts {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}

	return out
}

func mapField(doc map[string]interface{}, key string) map[string]interface{} {
	if m, ok := doc[key].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func stringField(doc map[string]interface{}, key string) string {
	switch v := doc[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func resourceTypeField(doc map[string]interface{}, key string) ResourceType {
	t := ResourceType(strings.ToLower(stringField(doc, key)))
	if t == "" {
		return ResourceJob
	}
	return t
}

func boolField(doc map[string]interface{}, key string) bool {
	switch v := doc[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func intField(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// timeField understands native times, RFC 3339 strings and {seconds, nanoseconds} maps.
func timeField(doc map[string]interface{}, key string) *time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	case map[string]interface{}:
		seconds := intField(v, "seconds")
		if seconds == 0 {
			seconds = intField(v, "_seconds")
		}
		if seconds > 0 {
			t := time.Unix(int64(seconds), int64(intField(v, "nanoseconds"))).UTC()
			return &t
		}
	}
	return nil
}
