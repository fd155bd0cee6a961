// Package module wires the backpack into the API using modkit
package module

import (
	"net/http"

	"badgehub/internal/adapters/openbadges"
	"badgehub/internal/core/obi"
	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"

	bhttp "badgehub/internal/services/api/backpack/http"
	brepo "badgehub/internal/services/api/backpack/repo"
	bsvc "badgehub/internal/services/api/backpack/service"
)

// Module implements the backpack module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *bsvc.Svc
}

// New constructs the backpack module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("backpack"),
		modkit.WithPrefix("/backpack"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("backpack module requires Auth port (from services/auth)")
	}
	if injected.Identities == nil {
		panic("backpack module requires the users identities port")
	}
	if injected.Notify == nil {
		panic("backpack module requires Notify port (from services/notify)")
	}
	if injected.Events == nil {
		panic("backpack module requires Events port (from services/events)")
	}

	o := FromConfig(deps.Cfg)
	verifier := obi.NewVerifier(openbadges.NewFetcher(openbadges.Options{
		Timeout: o.FetchTimeout,
	}))

	svc := bsvc.New(deps.PG, brepo.NewPG(),
		injected.Identities, verifier,
		injected.Notify, injected.Events, o.PublicURL)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Out{Service: svc, Public: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		bhttp.Register(r, m.svc, injected.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module under its prefix
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
