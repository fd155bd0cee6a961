// Package module wires issuers into the API using modkit
package module

import (
	"net/http"

	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	ihttp "badgehub/internal/services/api/issuers/http"
	irepo "badgehub/internal/services/api/issuers/repo"
	isvc "badgehub/internal/services/api/issuers/service"
)

// Module implements the issuers module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc isvc.Service
}

// New constructs the issuers module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("issuers"),
		modkit.WithPrefix("/issuers"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("issuers module requires Auth port (from services/auth)")
	}
	if injected.Notify == nil {
		panic("issuers module requires Notify port (from services/notify)")
	}
	if injected.Region == nil {
		panic("issuers module requires a Region lookup (from core/region)")
	}

	svc := isvc.New(deps.PG, irepo.NewPG(), injected.Region, injected.Notify)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Out{Service: svc, Access: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ihttp.Register(r, m.svc, injected.Auth)
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
