// Package module wires assertions into the API using modkit
package module

import (
	"net/http"

	modkit "badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"

	ahttp "badgehub/internal/services/api/assertions/http"
	arepo "badgehub/internal/services/api/assertions/repo"
	asvc "badgehub/internal/services/api/assertions/service"
)

// Module implements the assertions module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc  *asvc.Svc
	auth middleware.AuthPort
}

// New constructs the assertions module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("assertions"),
		modkit.WithPrefix("/assertions"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	if injected.Auth == nil {
		panic("assertions module requires Auth port (from services/auth)")
	}
	if injected.Badges == nil {
		panic("assertions module requires the badges read port")
	}
	if injected.Access == nil {
		panic("assertions module requires the issuers access port")
	}
	if injected.Identities == nil {
		panic("assertions module requires the users identities port")
	}
	if injected.Notify == nil {
		panic("assertions module requires Notify port (from services/notify)")
	}
	if injected.Events == nil {
		panic("assertions module requires Events port (from services/events)")
	}

	svc := asvc.New(deps.PG, arepo.NewPG(),
		injected.Badges, injected.Access, injected.Identities,
		injected.Notify, injected.Events)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		auth:      injected.Auth,
	}
	m.ports = Out{
		Service: svc,
		Read:    svc,
		Worker:  svc,
		Sweeper: svc,
		BadgeRoutes: func(r httpkit.Router) {
			ahttp.RegisterBadgeScoped(r, svc, injected.Auth)
		},
		IssuerRoutes: func(r httpkit.Router) {
			ahttp.RegisterIssuerScoped(r, svc, injected.Auth)
		},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ahttp.Register(r, m.svc, injected.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts /assertions plus the /batches status surface
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
	r.Route("/batches", func(rr httpkit.Router) {
		ahttp.RegisterBatches(rr, m.svc, m.auth)
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module mount prefix
func (m *Module) Prefix() string { return m.prefix }
