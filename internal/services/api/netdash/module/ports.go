package module

import (
	"badgehub/internal/platform/net/middleware"
	idomain "badgehub/internal/services/api/issuers/domain"
	"badgehub/internal/services/api/netdash/domain"
)

// Ports declares what the netdash module consumes
type Ports struct {
	Auth middleware.AuthPort
	// Access resolves network slugs and staff roles, provided by api/issuers
	Access idomain.AccessPort
	// Region maps zips to city names for the social space, provided by core/region
	Region domain.RegionPort
}

// Out declares what the netdash module exposes
type Out struct {
	Service domain.ServicePort
}

// Ports returns the module's exposed ports
func (m *Module) Ports() any { return m.ports }
