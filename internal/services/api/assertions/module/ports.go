package module

import (
	"context"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/assertions/domain"
	asvc "badgehub/internal/services/api/assertions/service"
	bdomain "badgehub/internal/services/api/badges/domain"
	idomain "badgehub/internal/services/api/issuers/domain"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Ports are the injected dependencies of the assertions module
type Ports struct {
	Auth       middleware.AuthPort
	Badges     bdomain.ReadPort
	Access     idomain.AccessPort
	Identities asvc.Identities
	Notify     notify.Port
	Events     events.Port
}

// BatchWorker drains pending batch awards, driven by the scheduler
type BatchWorker interface {
	ProcessPending(ctx context.Context) (int, error)
}

// ExpirySweeper warns recipients about lapsing badges, driven by the scheduler
type ExpirySweeper interface {
	NotifyExpiring(ctx context.Context) (int, error)
}

// Out is the port set the assertions module exposes. The route hooks mount
// the badge and issuer scoped endpoints on their owners' routers
type Out struct {
	Service domain.ServicePort
	Read    domain.ReadPort
	Worker  BatchWorker
	Sweeper ExpirySweeper

	BadgeRoutes  func(httpkit.Router)
	IssuerRoutes func(httpkit.Router)
}

// Ports exposes the module ports
func (m *Module) Ports() any { return m.ports }
