package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Register(ctx context.Context, in RegisterInput) (Profile, error)
	Profile(ctx context.Context, userID string) (Profile, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (Profile, error)
	AddEmail(ctx context.Context, userID string, in AddEmailInput) (Email, error)
	VerifyEmail(ctx context.Context, userID, emailID string) (Email, error)
	MakePrimary(ctx context.Context, userID, emailID string) (Email, error)
	DeleteEmail(ctx context.Context, userID, emailID string) error

	// VerifiedIdentities lists the identity strings assertions may be
	// matched against: every verified email plus its mailto: variant
	VerifiedIdentities(ctx context.Context, userID string) ([]string, error)
}
