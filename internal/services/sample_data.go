// ===============================
// internal/services/sample_data.go - Starter catalogue for an empty database
// ===============================

package services

import (
	"freezybe/internal/models"

	"github.com/lib/pq"
)

type sampleResource struct {
	title, description, category, location, duration string
	kind                                               models.ResourceType
	level                                              models.AccessLevel
	featured                                           bool
	priority                                           int
	requirements, benefits                             []string
}

var starterCatalogue = []sampleResource{
	{
		title:        "Frontend Developer at TechCorp",
		description:  "Join our team as a Frontend Developer. Work with React, Next.js, and modern web technologies.",
		kind:         models.ResourceJob,
		category:     "software-development",
		location:     "Karachi, Pakistan",
		requirements: []string{"React", "JavaScript", "CSS", "HTML"},
		benefits:     []string{"Health Insurance", "Remote Work", "Learning Budget"},
		level:        models.AccessFree,
		featured:     true,
		priority:     90,
	},
	{
		title:        "Digital Marketing Specialist",
		description:  "Looking for a creative Digital Marketing Specialist to join our growing team.",
		kind:         models.ResourceJob,
		category:     "marketing",
		location:     "Lahore, Pakistan",
		requirements: []string{"Social Media Marketing", "Google Ads", "Content Creation"},
		benefits:     []string{"Flexible Hours", "Performance Bonus"},
		level:        models.AccessFree,
		priority:     70,
	},
	{
		title:        "Complete Web Development Bootcamp",
		description:  "Learn full-stack web development from scratch. HTML, CSS, JavaScript, React, Node.js",
		kind:         models.ResourceCourse,
		category:     "programming",
		location:     "Online",
		duration:     "12 weeks",
		requirements: []string{"Basic Computer Skills"},
		benefits:     []string{"Certificate", "Lifetime Access", "Community Support"},
		level:        models.AccessFree,
		featured:     true,
		priority:     85,
	},
	{
		title:        "Digital Marketing Fundamentals",
		description:  "Master the basics of digital marketing including SEO, social media, and email marketing.",
		kind:         models.ResourceCourse,
		category:     "marketing",
		location:     "Online",
		duration:     "8 weeks",
		requirements: []string{"None"},
		benefits:     []string{"Certificate", "Real Projects", "Mentorship"},
		level:        models.AccessPro,
		priority:     80,
	},
	{
		title:        "Canva - Design Tool",
		description:  "Free online design tool for creating graphics, presentations, and social media posts.",
		kind:         models.ResourceTool,
		category:     "design",
		location:     "Web-based",
		requirements: []string{"Internet Connection"},
		benefits:     []string{"Free Templates", "Easy to Use", "Collaboration"},
		level:        models.AccessDemo,
		priority:     60,
	},
	{
		title:        "VS Code - Code Editor",
		description:  "Free, powerful code editor with extensions for all programming languages.",
		kind:         models.ResourceTool,
		category:     "development",
		location:     "Desktop/Web",
		requirements: []string{"Windows/Mac/Linux"},
		benefits:     []string{"Free", "Extensions", "Git Integration"},
		level:        models.AccessFree,
		priority:     75,
	},
}

// SampleResources returns a fresh copy of the starter catalogue: two jobs,
// two courses and two tools.
func SampleResources() []models.Resource {
	resources := make([]models.Resource, 0, len(starterCatalogue))
	for _, s := range starterCatalogue {
		level := s.level
		resources = append(resources, models.Resource{
			Title:          s.title,
			Description:    s.description,
			Type:           s.kind,
			Category:       s.category,
			SourceURL:      "#",
			SourcePlatform: "manual",
			Requirements:   pq.StringArray(append([]string(nil), s.requirements...)),
			Benefits:       pq.StringArray(append([]string(nil), s.benefits...)),
			Location:       s.location,
			Duration:       s.duration,
			Status:         models.StatusActive,
			AccessLevel:    &level,
			IsFeatured:     s.featured,
			PriorityScore:  s.priority,
		})
	}
	return resources
}
