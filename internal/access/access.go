// ===============================
// internal/access/access.go - Plan-gated resource selection
// ===============================

// Package access decides which resources a subscription plan may see.
// Everything here is pure: callers load resources and hand them in.
package access

import (
	"sort"

	"freezybe/internal/models"
)

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Bucket groups resource types that share one plan limit.
type Bucket string

const (
	Jobs    Bucket = "jobs"
	Courses Bucket = "courses"
	Tools   Bucket = "tools"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{Jobs, Courses, Tools}

// BucketOf maps a resource type to its bucket. Internships count as jobs and
// unknown types fall into jobs as well.
func BucketOf(t models.ResourceType) Bucket {
	switch t {
	case models.ResourceCourse:
		return Courses
	case models.ResourceTool:
		return Tools
	default:
		return Jobs
	}
}

type Limits struct {
	Jobs    int `json:"jobs"`
	Courses int `json:"courses"`
	Tools   int `json:"tools"`
	Total   int `json:"total"`
}

var planLimits = map[models.Plan]Limits{
	models.PlanFree:       {Jobs: 12, Courses: 13, Tools: 13, Total: 38},
	models.PlanPro:        {Jobs: 80, Courses: 60, Tools: 60, Total: 200},
	models.PlanEnterprise: {Jobs: Unlimited, Courses: Unlimited, Tools: Unlimited, Total: Unlimited},
}

// LimitsFor returns the per-bucket limits of plan. Unknown plans get free limits.
func LimitsFor(plan models.Plan) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[models.PlanFree]
}

// For returns the limit of one bucket.
func (l Limits) For(b Bucket) int {
	switch b {
	case Courses:
		return l.Courses
	case Tools:
		return l.Tools
	default:
		return l.Jobs
	}
}

// CanView reports whether plan ranks at or above the access level.
func CanView(plan models.Plan, level models.AccessLevel) bool {
	return level.Rank() <= plan.Rank()
}

var allLevels = []models.AccessLevel{models.AccessDemo, models.AccessFree, models.AccessPro, models.AccessEnterprise}

// ViewableLevels lists the access levels plan may see, lowest first.
func ViewableLevels(plan models.Plan) []models.AccessLevel {
	levels := make([]models.AccessLevel, 0, len(allLevels))
	for _, level := range allLevels {
		if CanView(plan, level) {
			levels = append(levels, level)
		}
	}
	return levels
}

// UpgradeOffer is the next plan up and its total resource limit.
type UpgradeOffer struct {
	Plan  models.Plan `json:"plan"`
	Limit int         `json:"limit"`
}

// NextPlan returns the plan a user would upgrade to, or false at the top tier.
func NextPlan(plan models.Plan) (UpgradeOffer, bool) {
	switch plan {
	case models.PlanPro:
		return UpgradeOffer{Plan: models.PlanEnterprise, Limit: Unlimited}, true
	case models.PlanEnterprise:
		return UpgradeOffer{}, false
	default:
		return UpgradeOffer{Plan: models.PlanPro, Limit: LimitsFor(models.PlanPro).Total}, true
	}
}

type Counts struct {
	Jobs    int `json:"jobs"`
	Courses int `json:"courses"`
	Tools   int `json:"tools"`
}

func (c *Counts) add(b Bucket, n int) {
	switch b {
	case Courses:
		c.Courses += n
	case Tools:
		c.Tools += n
	default:
		c.Jobs += n
	}
}

// Total sums every bucket.
func (c Counts) Total() int {
	return c.Jobs + c.Courses + c.Tools
}

type HasMore struct {
	Jobs    bool `json:"jobs"`
	Courses bool `json:"courses"`
	Tools   bool `json:"tools"`
	Any     bool `json:"any"`
}

func (h *HasMore) set(b Bucket, v bool) {
	switch b {
	case Courses:
		h.Courses = v
	case Tools:
		h.Tools = v
	default:
		h.Jobs = v
	}
	h.Any = h.Jobs || h.Courses || h.Tools
}

// Selection is what a plan gets to see out of the active catalogue.
type Selection struct {
	Plan           models.Plan       `json:"plan"`
	Jobs           []models.Resource `json:"jobs"`
	Courses        []models.Resource `json:"courses"`
	Tools          []models.Resource `json:"tools"`
	Limits         Limits            `json:"limits"`
	HasMore        HasMore           `json:"hasMore"`
	TotalAvailable Counts            `json:"totalAvailable"`
	Hidden         Counts            `json:"hidden"`
	NextPlan       *UpgradeOffer     `json:"nextPlan,omitempty"`
}

// Items returns the selected resources of one bucket.
func (s *Selection) Items(b Bucket) []models.Resource {
	switch b {
	case Courses:
		return s.Courses
	case Tools:
		return s.Tools
	default:
		return s.Jobs
	}
}

func (s *Selection) setItems(b Bucket, items []models.Resource) {
	switch b {
	case Courses:
		s.Courses = items
	case Tools:
		s.Tools = items
	default:
		s.Jobs = items
	}
}

// Select applies plan to resources. Inactive resources are dropped, the rest
// are bucketed and ordered, resources above the plan's access rank are
// locked, and each bucket is capped at the plan limit. HasMore for a bucket
// is set when anything was held back, either by the cap or by the lock.
func Select(plan models.Plan, resources []models.Resource) Selection {
	if !plan.Valid() {
		plan = models.PlanFree
	}

	sel := Selection{
		Plan:    plan,
		Limits:  LimitsFor(plan),
		Jobs:    []models.Resource{},
		Courses: []models.Resource{},
		Tools:   []models.Resource{},
	}
	if next, ok := NextPlan(plan); ok {
		sel.NextPlan = &next
	}

	grouped := make(map[Bucket][]models.Resource, len(Buckets))
	for _, r := range resources {
		if !r.Status.IsActive() {
			continue
		}
		b := BucketOf(r.Type)
		grouped[b] = append(grouped[b], r)
	}

	for _, b := range Buckets {
		items := grouped[b]
		Sort(items)
		sel.TotalAvailable.add(b, len(items))

		viewable := make([]models.Resource, 0, len(items))
		locked := 0
		for _, r := range items {
			if CanView(plan, r.Access()) {
				viewable = append(viewable, r)
			} else {
				locked++
			}
		}

		over := 0
		if limit := sel.Limits.For(b); limit != Unlimited && len(viewable) > limit {
			over = len(viewable) - limit
			viewable = viewable[:limit]
		}

		sel.setItems(b, viewable)
		sel.Hidden.add(b, locked+over)
		sel.HasMore.set(b, locked > 0 || over > 0)
	}

	return sel
}

// Sort orders resources featured first, then by priority score, newest
// first, and finally by ID so equal entries keep a stable order.
func Sort(items []models.Resource) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
