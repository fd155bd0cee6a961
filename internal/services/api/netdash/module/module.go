// Package module wires network dashboards and the social space into the API
package module

import (
	"net/http"

	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	nhttp "badgehub/internal/services/api/netdash/http"
	nrepo "badgehub/internal/services/api/netdash/repo"
	nsvc "badgehub/internal/services/api/netdash/service"
)

// Module implements the netdash module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc nsvc.Service
}

// New constructs the netdash module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("netdash"),
		modkit.WithPrefix("/networks"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("netdash module requires Auth port (from services/auth)")
	}
	if injected.Access == nil {
		panic("netdash module requires the issuer access port (from api/issuers)")
	}
	if injected.Region == nil {
		panic("netdash module requires the region port")
	}

	svc := nsvc.New(deps.PG, nrepo.NewPG(), injected.Access, injected.Region)

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
		nhttp.Register(r, m.svc, injected.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the network routes plus the public social space
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
	r.Route("/socialspace", func(rr httpkit.Router) {
		nhttp.RegisterSocialspace(rr, m.svc)
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module mount prefix
func (m *Module) Prefix() string { return m.prefix }
