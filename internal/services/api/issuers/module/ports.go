package module

import (
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/issuers/domain"
	isvc "badgehub/internal/services/api/issuers/service"
	"badgehub/internal/services/notify"
)

// Ports declares the injected ports this module requires
type Ports struct {
	Auth   middleware.AuthPort
	Notify notify.Port
	Region isvc.Region
}

// Out is what the module exposes to siblings: the full service surface and
// the narrow staff gate badge and dashboard modules check against
type Out struct {
	Service domain.ServicePort
	Access  domain.AccessPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
