// Package domain contains backpack DTOs and ports
package domain

import (
	"encoding/json"
	"time"
)

// Badge sources in the merged backpack view
const (
	SourceHosted   = "hosted"
	SourceImported = "imported"
)

// Share providers
const (
	ProviderFacebook = "facebook"
	ProviderLinkedIn = "linkedin"
)

// ListQuery narrows the merged backpack listing
type ListQuery struct {
	IncludeExpired bool
	IncludeRevoked bool
	IncludePending bool

	ExpandBadge  bool
	ExpandIssuer bool
}

// BadgeSummary is the inlined badge class block on expanded listings
type BadgeSummary struct {
	Slug        string `json:"slug,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// IssuerSummary is the inlined issuer block on expanded listings
type IssuerSummary struct {
	Slug string `json:"slug,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// BackpackBadge is one earned badge, hosted or imported
type BackpackBadge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	BadgeName  string `json:"badge_name"`
	BadgeImage string `json:"badge_image_url,omitempty"`
	IssuerName string `json:"issuer_name"`

	IssuedOn  *time.Time `json:"issued_on,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Revoked    bool   `json:"revoked"`
	Pending    bool   `json:"pending"`
	Acceptance string `json:"acceptance"`
	Narrative  string `json:"narrative,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`

	BadgeClass *BadgeSummary  `json:"badgeclass,omitempty"`
	Issuer     *IssuerSummary `json:"issuer,omitempty"`
}

// AcceptanceInput sets the acceptance of a backpack badge. Unaccepted is the
// initial state only and cannot be set back
type AcceptanceInput struct {
	Acceptance string `json:"acceptance" validate:"required,oneof=Accepted Rejected" example:"Accepted"`
}

// ImportInput carries exactly one source for a badge import
type ImportInput struct {
	URL       string          `json:"url,omitempty" validate:"omitempty,url" example:"https://badges.example.org/assertions/abc"`
	Image     string          `json:"image,omitempty"`
	Assertion json.RawMessage `json:"assertion,omitempty"`
}

// ImportedBadge is a badge brought in from an external issuer
type ImportedBadge struct {
	ID               string                     `json:"id"`
	BadgeName        string                     `json:"badge_name"`
	BadgeDescription string                     `json:"badge_description,omitempty"`
	BadgeImageURL    string                     `json:"badge_image_url,omitempty"`
	IssuerName       string                     `json:"issuer_name,omitempty"`
	IssuerURL        string                     `json:"issuer_url,omitempty"`
	AssertionID      string                     `json:"assertion_id,omitempty"`
	SourceURL        string                     `json:"source_url,omitempty"`
	Version          string                     `json:"version"`
	IssuedOn         *time.Time                 `json:"issued_on,omitempty"`
	ExpiresAt        *time.Time                 `json:"expires_at,omitempty"`
	Narrative        string                     `json:"narrative,omitempty"`
	Acceptance       string                     `json:"acceptance"`
	Extensions       map[string]json.RawMessage `json:"extensions,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
}

// CreateCollectionInput creates a collection
type CreateCollectionInput struct {
	Name        string   `json:"name" validate:"required,max=128" example:"Webentwicklung"`
	Description string   `json:"description,omitempty" validate:"max=1000"`
	Published   bool     `json:"published,omitempty"`
	BadgeIDs    []string `json:"badge_ids,omitempty" validate:"max=100,dive,uuid"`
}

// UpdateCollectionInput updates a collection. Only set fields change,
// a non nil BadgeIDs replaces all entries
type UpdateCollectionInput struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=128"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Published   *bool     `json:"published,omitempty"`
	BadgeIDs    *[]string `json:"badge_ids,omitempty" validate:"omitempty,max=100,dive,uuid"`
}

// Collection groups backpack badges for sharing
type Collection struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Published   bool      `json:"published"`
	ShareHash   string    `json:"share_hash,omitempty"`
	ShareURL    string    `json:"share_url,omitempty"`
	BadgeIDs    []string  `json:"badge_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicCollection is the unauthenticated view behind a share hash
type PublicCollection struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Badges      []PublicBadge `json:"badges"`
}

// PublicBadge is the public safe card inside a shared collection
type PublicBadge struct {
	BadgeName  string     `json:"badge_name"`
	BadgeImage string     `json:"badge_image_url,omitempty"`
	IssuerName string     `json:"issuer_name"`
	IssuedOn   *time.Time `json:"issued_on,omitempty"`
}

// ShareOptions qualifies a share link request
type ShareOptions struct {
	Provider          string
	IncludeIdentifier bool
}

// ShareLink is the provider share URL for a badge or collection
type ShareLink struct {
	URL string `json:"url"`
}
