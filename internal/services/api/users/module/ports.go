package module

import (
	"context"

	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/users/domain"
	usvc "badgehub/internal/services/api/users/service"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Ports declares the injected ports this module requires
type Ports struct {
	Auth   middleware.AuthPort
	Notify notify.Port
	Events events.Port
}

// Out is what the module exposes to siblings. Service doubles as the
// identity lookup assertions and backpack match recipients against
type Out struct {
	Service domain.ServicePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptUsersPort exposes service methods as module ports for cross-module usage
type adaptUsersPort struct{ svc usvc.Service }

func (a adaptUsersPort) Register(ctx context.Context, in domain.RegisterInput) (domain.Profile, error) {
	return a.svc.Register(ctx, in)
}

func (a adaptUsersPort) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	return a.svc.Profile(ctx, userID)
}

func (a adaptUsersPort) UpdateProfile(ctx context.Context, userID string, in domain.UpdateProfileInput) (domain.Profile, error) {
	return a.svc.UpdateProfile(ctx, userID, in)
}

func (a adaptUsersPort) AddEmail(ctx context.Context, userID string, in domain.AddEmailInput) (domain.Email, error) {
	return a.svc.AddEmail(ctx, userID, in)
}

func (a adaptUsersPort) VerifyEmail(ctx context.Context, userID, emailID string) (domain.Email, error) {
	return a.svc.VerifyEmail(ctx, userID, emailID)
}

func (a adaptUsersPort) MakePrimary(ctx context.Context, userID, emailID string) (domain.Email, error) {
	return a.svc.MakePrimary(ctx, userID, emailID)
}

func (a adaptUsersPort) DeleteEmail(ctx context.Context, userID, emailID string) error {
	return a.svc.DeleteEmail(ctx, userID, emailID)
}

func (a adaptUsersPort) VerifiedIdentities(ctx context.Context, userID string) ([]string, error) {
	return a.svc.VerifiedIdentities(ctx, userID)
}
