package model

import (
	"encoding/json"
	"time"
)

// Entity type tags. Trash records store these verbatim in entity_type.
const (
	EntityProjects     = "projects"
	EntityBlogs        = "blogs"
	EntityServices     = "services"
	EntitySkills       = "skills"
	EntityEducation    = "education"
	EntityExperience   = "experience"
	EntityAchievements = "achievements"
	EntityReferences   = "references"
	EntityTestimonials = "testimonials"
	EntityFAQ          = "faq"
)

// EntityRow is a live entity rendered as its JSON column map.
type EntityRow struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type EntityQuery struct {
	EntityType string
	Page       int
	Limit      int
}
