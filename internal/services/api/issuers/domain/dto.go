// Package domain holds DTOs for issuing institutions, their staff, and networks
package domain

import "time"

// Staff roles, strongest first. Owner implies editor implies staff
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleStaff  = "staff"
)

// Membership states of an institution inside a network
const (
	MembershipInvited  = "invited"
	MembershipAccepted = "accepted"
	MembershipRejected = "rejected"
)

// CreateIssuerInput registers an institution (or a network umbrella)
type CreateIssuerInput struct {
	Name        string `json:"name" validate:"required,max=255" example:"Technische Universität Berlin"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	URL         string `json:"url" validate:"omitempty,url" example:"https://www.tu.berlin"`
	Email       string `json:"email" validate:"omitempty,email" example:"badges@tu.berlin"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	ZipCode     string `json:"zip_code" validate:"omitempty,numeric,len=5" example:"10623"`
	City        string `json:"city" validate:"omitempty,max=100" example:"Berlin"`
	Category    string `json:"category" validate:"omitempty,max=255" example:"Hochschule"`
	IsNetwork   bool   `json:"is_network"`
}

// UpdateIssuerInput mutates an issuer, nil fields stay untouched
type UpdateIssuerInput struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	URL         *string `json:"url" validate:"omitempty,url"`
	Email       *string `json:"email" validate:"omitempty,email"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	ZipCode     *string `json:"zip_code" validate:"omitempty,numeric,len=5"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=255"`
}

// Issuer is the API view of an institution
type Issuer struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug" example:"technische-universitat-berlin"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	Email       string    `json:"email,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	ZipCode     string    `json:"zip_code,omitempty"`
	City        string    `json:"city,omitempty"`
	Category    string    `json:"category,omitempty"`
	Verified    bool      `json:"verified"`
	IsNetwork   bool      `json:"is_network"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListQuery filters the issuer index. Assembled from query params, not a body
type ListQuery struct {
	Category string
	Verified *bool
	Q        string
	Page     int
	PageSize int
}

// Paging bounds, shared by handler echo and repo limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

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

// AddStaffInput grants a role to an existing account by address
type AddStaffInput struct {
	Email string `json:"email" validate:"required,email" example:"ada@example.org"`
	Role  string `json:"role" validate:"required,oneof=owner editor staff" example:"editor"`
}

// StaffMember is one staff row with its account context
type StaffMember struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteMemberInput invites an institution into a network by slug
type InviteMemberInput struct {
	Slug string `json:"slug" validate:"required" example:"technische-universitat-berlin"`
}

// DecideMembershipInput accepts or rejects a pending invitation
type DecideMembershipInput struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// Membership is one institution inside a network with its invitation state
type Membership struct {
	ID         string     `json:"id"`
	MemberSlug string     `json:"member_slug"`
	MemberName string     `json:"member_name"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
}
