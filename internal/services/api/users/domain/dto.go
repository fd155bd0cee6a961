// Package domain holds DTOs for user accounts and their emails
package domain

import "time"

// RegisterInput creates an account
type RegisterInput struct {
	Email          string `json:"email" validate:"required,email" example:"ada@example.org"`
	Password       string `json:"password" validate:"required,min=8"`
	FirstName      string `json:"first_name" validate:"omitempty,max=100" example:"Ada"`
	LastName       string `json:"last_name" validate:"omitempty,max=100" example:"Lovelace"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female diverse noAnswer" example:"female"`
	ZipCode        string `json:"zip_code" validate:"omitempty,numeric,len=5" example:"10115"`
	MarketingOptIn bool   `json:"marketing_optin"`
	TermsVersion   int    `json:"terms_version" validate:"omitempty,min=0" example:"2"`
}

// UpdateProfileInput mutates the caller's profile, nil fields stay untouched
type UpdateProfileInput struct {
	FirstName      *string `json:"first_name" validate:"omitempty,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,max=100"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=male female diverse noAnswer"`
	ZipCode        *string `json:"zip_code" validate:"omitempty,numeric,len=5"`
	MarketingOptIn *bool   `json:"marketing_optin"`
	TermsVersion   *int    `json:"terms_version" validate:"omitempty,min=0"`
}

// AddEmailInput attaches a secondary address to the account
type AddEmailInput struct {
	Email string `json:"email" validate:"required,email" example:"ada@work.example"`
}

// Email is one address bound to an account
type Email struct {
	ID       string `json:"id"`
	Email    string `json:"email" example:"ada@example.org"`
	Verified bool   `json:"verified"`
	Primary  bool   `json:"primary"`
}

// Profile is the caller facing account view
type Profile struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Gender         string    `json:"gender,omitempty"`
	ZipCode        string    `json:"zip_code,omitempty"`
	MarketingOptIn bool      `json:"marketing_optin"`
	TermsVersion   int       `json:"terms_version"`
	Admin          bool      `json:"admin,omitempty"`
	Emails         []Email   `json:"emails"`
	CreatedAt      time.Time `json:"created_at"`
}
