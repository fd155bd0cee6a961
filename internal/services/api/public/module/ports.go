package module

import (
	bdomain "badgehub/internal/services/api/backpack/domain"
	"badgehub/internal/services/api/public/domain"
)

// Ports declares what the public module consumes
type Ports struct {
	// Collections resolves published share hashes, provided by backpack
	Collections bdomain.PublicPort
}

// Out declares what the public module exposes
type Out struct {
	Service domain.ServicePort
}

// Ports returns the module's exposed ports
func (m *Module) Ports() any { return m.ports }
