package module

import (
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/backpack/domain"
	bsvc "badgehub/internal/services/api/backpack/service"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// Ports are the injected dependencies of the backpack module
type Ports struct {
	Auth       middleware.AuthPort
	Identities bsvc.Identities
	Notify     notify.Port
	Events     events.Port
}

// Out is the port set the backpack module exposes. Public serves the
// anonymous shared-collection lookups
type Out struct {
	Service domain.ServicePort
	Public  domain.PublicPort
}

// Ports exposes the module ports
func (m *Module) Ports() any { return m.ports }
