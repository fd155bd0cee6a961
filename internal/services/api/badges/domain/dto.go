// Package domain holds DTOs for badge classes and their extensions
package domain

import (
	"encoding/json"
	"time"

	"badgehub/internal/core/competency"
)

// CreateBadgeInput defines a badge class under an issuer
type CreateBadgeInput struct {
	Name        string   `json:"name" validate:"required,max=255" example:"Digital Literacy Basics"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	Criteria    string   `json:"criteria" validate:"omitempty,max=20000"`
	Tags        []string `json:"tags" validate:"omitempty,max=25,dive,max=50"`
	ExpiresDays *int     `json:"expires_days" validate:"omitempty,gte=0" example:"365"`

	// Extensions keyed by name, e.g. extensions:CompetencyExtension.
	// Payloads are stored as given and validated per known extension
	Extensions map[string]json.RawMessage `json:"extensions" validate:"omitempty"`
}

// UpdateBadgeInput mutates a badge class, nil fields stay untouched.
// A zero ExpiresDays clears the expiry period, a non nil Extensions map
// replaces all extensions
type UpdateBadgeInput struct {
	Name        *string   `json:"name" validate:"omitempty,max=255"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	ImageURL    *string   `json:"image_url" validate:"omitempty,url"`
	Criteria    *string   `json:"criteria" validate:"omitempty,max=20000"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=25,dive,max=50"`
	ExpiresDays *int      `json:"expires_days" validate:"omitempty,gte=0"`

	Extensions map[string]json.RawMessage `json:"extensions" validate:"omitempty"`
}

// Badge is the API view of a badge class
type Badge struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug" example:"digital-literacy-basics"`
	IssuerSlug   string   `json:"issuer_slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Criteria     string   `json:"criteria,omitempty"`
	CriteriaHTML string   `json:"criteria_html,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ExpiresDays  *int     `json:"expires_days,omitempty"`
	Archived     bool     `json:"archived"`

	Extensions       map[string]json.RawMessage `json:"extensions,omitempty"`
	Competencies     []competency.Competency    `json:"competencies,omitempty"`
	StudyLoadMinutes int                        `json:"study_load_minutes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Paging bounds for badge lists
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery pages an issuer's badge classes
type ListQuery struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Clamped normalizes paging silently, out of range values snap to the bounds
func (q ListQuery) Clamped() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// ChangedFeed lists badge classes touched after a cutoff. Timestamp is taken
// before the query runs so clients can hand it back as the next since value
type ChangedFeed struct {
	Items     []Badge   `json:"items"`
	Timestamp time.Time `json:"timestamp"`
}
