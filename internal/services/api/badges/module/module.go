// Package module wires badge classes into the API using modkit
package module

import (
	"net/http"

	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	bhttp "badgehub/internal/services/api/badges/http"
	brepo "badgehub/internal/services/api/badges/repo"
	bsvc "badgehub/internal/services/api/badges/service"
)

// Module implements the badges module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc bsvc.Service
}

// New constructs the badges module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("badges"),
		modkit.WithPrefix("/badges"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("badges module requires Auth port (from services/auth)")
	}
	if injected.Access == nil {
		panic("badges module requires the issuers access port")
	}

	svc := bsvc.New(deps.PG, brepo.NewPG(), injected.Access)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Out{
		Service: svc,
		Read:    svc,
		IssuerRoutes: func(r httpkit.Router) {
			bhttp.RegisterIssuerScoped(r, svc, injected.Auth)
		},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc, injected.Auth)
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
