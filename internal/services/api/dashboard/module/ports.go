package module

import (
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/dashboard/domain"
)

// Ports declares what the dashboard module consumes
type Ports struct {
	Auth middleware.AuthPort
	// Region resolves viewer zips to district filters, provided by core/region
	Region domain.RegionPort
}

// Out declares what the dashboard module exposes
type Out struct {
	Service domain.ServicePort
}

// Ports returns the module's exposed ports
func (m *Module) Ports() any { return m.ports }
