package module

import (
	"context"

	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/auth/domain"
	authsvc "badgehub/internal/services/auth/service"
)

// Ports holds the ports exposed by the auth module
type Ports struct {
	Auth    middleware.AuthPort
	Service domain.ServicePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptAuthPort struct{ svc authsvc.Service }

// Token exchanges credentials for an access token
func (a adaptAuthPort) Token(ctx context.Context, in domain.TokenInput) (domain.TokenOut, error) {
	return a.svc.Token(ctx, in)
}

// Refresh re-issues a token for a still valid one
func (a adaptAuthPort) Refresh(ctx context.Context, raw string) (domain.TokenOut, error) {
	return a.svc.Refresh(ctx, raw)
}
