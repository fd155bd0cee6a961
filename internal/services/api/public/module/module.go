// Package module wires the public document surface using modkit.
// Unlike the API modules it mounts at the server root, hosted document
// ids embed the /public prefix and must resolve without /api/v1
package module

import (
	"net/http"

	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	pubhttp "badgehub/internal/services/api/public/http"
	pubrepo "badgehub/internal/services/api/public/repo"
	pubsvc "badgehub/internal/services/api/public/service"
)

// Module implements the public module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the public module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("public"),
		modkit.WithPrefix("/public"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Collections == nil {
		panic("public module requires the backpack collections port")
	}

	o := FromConfig(deps.Cfg)
	svc := pubsvc.New(deps.PG, pubrepo.NewPG(), o.PublicURL)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
	}
	m.ports = Out{Service: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		pubhttp.Register(r, svc, injected.Collections)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts /public
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
