package access

import (
	"strings"

	"freezybe/internal/models"
)

var (
	qualityKeywords  = []string{"senior", "lead", "manager", "director", "architect", "expert", "advanced", "premium", "certified", "principal"}
	qualityCompanies = []string{"google", "microsoft", "apple", "amazon", "meta", "netflix", "uber", "airbnb", "stripe", "shopify"}
)

// HasQualitySignal reports whether a resource looks premium: a seniority
// keyword in the title, a well-known company, or a remote location.
func HasQualitySignal(r models.Resource) bool {
	title := strings.ToLower(r.Title)
	for _, k := range qualityKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}

	company := strings.ToLower(r.Company)
	for _, c := range qualityCompanies {
		if strings.Contains(company, c) {
			return true
		}
	}

	location := strings.ToLower(r.Location)
	return strings.Contains(location, "remote") || strings.Contains(location, "worldwide")
}

// AssignAccessLevel places the resource at position index of total (sorted
// by title) into a tier: the first 60% are free, the next 30% are pro when
// they carry a quality signal and free otherwise, the rest are enterprise.
func AssignAccessLevel(r models.Resource, index, total int) models.AccessLevel {
	if total <= 0 {
		return models.AccessFree
	}

	percentage := float64(index) / float64(total) * 100
	switch {
	case percentage <= 60:
		return models.AccessFree
	case percentage <= 90:
		if HasQualitySignal(r) {
			return models.AccessPro
		}
		return models.AccessFree
	default:
		return models.AccessEnterprise
	}
}

// TierDefaults returns the featured flag and priority score given to a
// resource when its access level is assigned in bulk.
func TierDefaults(level models.AccessLevel) (featured bool, priority int) {
	switch level {
	case models.AccessEnterprise:
		return true, 100
	case models.AccessPro:
		return false, 80
	default:
		return false, 60
	}
}
