// Package domain holds DTOs for auth http and service contracts
package domain

// TokenInput carries a password grant
type TokenInput struct {
	Email    string `json:"email" validate:"required,email" example:"ada@example.org"`
	Password string `json:"password" validate:"required,min=8" example:"correct horse battery staple"`
}

// TokenOut is an issued access token
type TokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int64  `json:"expires_in" example:"86400"`
	Scope       string `json:"scope" example:"r:backpack rw:backpack"`
}
