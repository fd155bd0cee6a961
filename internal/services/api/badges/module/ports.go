package module

import (
	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/badges/domain"
	idomain "badgehub/internal/services/api/issuers/domain"
)

// Ports are the injected dependencies of the badges module
type Ports struct {
	Auth   middleware.AuthPort
	Access idomain.AccessPort
}

// Out is the port set the badges module exposes.
// IssuerRoutes mounts the /issuers/{slug}/badges endpoints and is handed to
// the issuers module's register hook at wiring time
type Out struct {
	Service domain.ServicePort
	Read    domain.ReadPort

	IssuerRoutes func(httpkit.Router)
}

// Ports exposes the module ports
func (m *Module) Ports() any { return m.ports }
