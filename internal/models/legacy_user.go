// ===============================
// internal/models/legacy_user.go - Legacy Firestore user documents
// ===============================

package models

import (
	"strings"
	"time"
)

// NormalizeUserDocument maps a legacy user document (profile, subscription
// and preferences sub-maps, or the same fields at the top level) onto a
// users row. Missing subscription fields stay nil so Backfill can decide
// them. It reports false when the document has no usable email.
func NormalizeUserDocument(uid string, doc map[string]interface{}) (User, bool) {
	profile := mapField(doc, "profile")
	if len(profile) == 0 {
		profile = doc
	}
	subscription := mapField(doc, "subscription")
	if len(subscription) == 0 {
		subscription = doc
	}

	u := User{
		UID:           uid,
		Name:          stringField(profile, "name"),
		Email:         strings.ToLower(stringField(profile, "email")),
		PhoneNumber:   firstString(profile, "phone_number", "phone"),
		Location:      stringField(profile, "location"),
		UserType:      UserTypeUser,
		EmailVerified: boolField(profile, "email_verified"),
	}
	if uid == "" || u.Email == "" {
		return User{}, false
	}
	if u.Name == "" {
		u.Name = strings.Split(u.Email, "@")[0]
	}

	now := time.Now().UTC()
	u.CreatedAt = orNow(timeField(profile, "created_at"), now)
	u.LastLogin = orNow(timeField(profile, "last_login"), u.CreatedAt)
	u.UpdatedAt = now

	if plan := Plan(strings.ToLower(stringField(subscription, "selected_plan"))); plan.Valid() {
		u.SelectedPlan = &plan
	}
	if status := ApprovalStatus(strings.ToLower(stringField(subscription, "approval_status"))); status.Valid() {
		u.ApprovalStatus = &status
	}
	if approver := stringField(subscription, "approved_by"); approver != "" {
		u.ApprovedBy = &approver
	}
	u.ApprovedAt = timeField(subscription, "approved_at")
	u.PlanExpiresAt = timeField(subscription, "plan_expires_at")
	u.PlanUpdatedAt = timeField(subscription, "plan_updated_at")

	if prefs, ok := doc["preferences"].(map[string]interface{}); ok {
		u.Preferences = legacyPreferences(prefs)
	}

	return u, true
}

func legacyPreferences(doc map[string]interface{}) *Preferences {
	p := DefaultPreferences()
	if settings, ok := doc["notification_settings"].(map[string]interface{}); ok {
		p.Notifications.Email = boolOr(settings, "email_notifications", p.Notifications.Email)
		p.Notifications.Push = boolOr(settings, "push_notifications", p.Notifications.Push)
		p.Notifications.NewJobs = boolOr(settings, "job_alerts", p.Notifications.NewJobs)
		p.Notifications.NewCourses = boolOr(settings, "course_updates", p.Notifications.NewCourses)
		p.Notifications.NewTools = boolOr(settings, "tool_recommendations", p.Notifications.NewTools)
	}
	if categories := ParseResourceArray(doc["preferred_categories"]); len(categories) > 0 {
		p.Categories = categories
	}
	if locations := ParseResourceArray(doc["location_preferences"]); len(locations) > 0 {
		p.Locations = locations
	}
	return p
}

func firstString(doc map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v := stringField(doc, k); v != "" {
			return v
		}
	}
	return ""
}

func boolOr(doc map[string]interface{}, key string, fallback bool) bool {
	if _, ok := doc[key]; !ok {
		return fallback
	}
	return boolField(doc, key)
}

func orNow(t *time.Time, now time.Time) time.Time {
	if t == nil {
		return now
	}
	return *t
}
