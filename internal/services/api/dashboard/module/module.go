// Package module wires the platform dashboard into the API using modkit
package module

import (
	"net/http"

	"badgehub/internal/core/competency"
	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	dhttp "badgehub/internal/services/api/dashboard/http"
	drepo "badgehub/internal/services/api/dashboard/repo"
	dsvc "badgehub/internal/services/api/dashboard/service"
)

// Module implements the dashboard module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc dsvc.Service
}

// New constructs the dashboard module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("dashboard"),
		modkit.WithPrefix("/dashboard"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("dashboard module requires Auth port (from services/auth)")
	}
	if injected.Region == nil {
		panic("dashboard module requires the region port")
	}

	o := FromConfig(deps.Cfg)
	catalog, err := competency.LoadCatalogFile(o.CatalogPath)
	if err != nil {
		panic("dashboard module: " + err.Error())
	}

	svc := dsvc.New(deps.PG, drepo.NewPG(), injected.Region, catalog)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Out{Service: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		dhttp.Register(r, m.svc, injected.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module mount prefix
func (m *Module) Prefix() string { return m.prefix }
