// Package api provides the HTTP API for the application
package api

import (
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	phttp "badgehub/internal/platform/net/http"
	"badgehub/internal/platform/store"

	"badgehub/internal/modkit"
	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/modkit/module"
	"badgehub/internal/modkit/swaggerkit"

	"badgehub/internal/core/region"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"

	assertionsmod "badgehub/internal/services/api/assertions/module"
	backpackmod "badgehub/internal/services/api/backpack/module"
	badgesmod "badgehub/internal/services/api/badges/module"
	dashboardmod "badgehub/internal/services/api/dashboard/module"
	issuersmod "badgehub/internal/services/api/issuers/module"
	metamod "badgehub/internal/services/api/meta/module"
	netdashmod "badgehub/internal/services/api/netdash/module"
	publicmod "badgehub/internal/services/api/public/module"
	usersmod "badgehub/internal/services/api/users/module"
	authmod "badgehub/internal/services/auth/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger

	// Region resolves zip codes for issuers, dashboards and the social
	// space; the caller owns it so the scheduler can share the instance
	Region *region.Service

	// Events records funnel events; the caller owns it so shutdown can
	// flush the tail buffer
	Events *events.Recorder

	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// badge mails ride NATS; a disabled bus degrades to a logged no-op
	pub := notify.NewPublisher(opt.Store.NATS)

	// Auth first: every protected module takes its middleware port
	authMod := authmod.New(deps)
	auth := module.MustPortsOf[authmod.Ports](authMod).Auth

	usersMod := usersmod.New(deps, modkit.WithPorts(usersmod.Ports{
		Auth:   auth,
		Notify: pub,
		Events: opt.Events,
	}))
	usersOut := module.MustPortsOf[usersmod.Out](usersMod)

	// The nested /issuers/{slug}/... surfaces are owned by badges and
	// assertions. Their route hooks are captured here and filled in below;
	// register functions only run at mount time, after every module exists
	var badgesOut badgesmod.Out
	var assertionsOut assertionsmod.Out

	issuersMod := issuersmod.New(deps,
		modkit.WithPorts(issuersmod.Ports{
			Auth:   auth,
			Notify: pub,
			Region: opt.Region,
		}),
		modkit.WithRegister(func(ir phttp.Router) {
			badgesOut.IssuerRoutes(ir)
			assertionsOut.IssuerRoutes(ir)
		}),
	)
	issuersOut := module.MustPortsOf[issuersmod.Out](issuersMod)

	badgesMod := badgesmod.New(deps,
		modkit.WithPorts(badgesmod.Ports{
			Auth:   auth,
			Access: issuersOut.Access,
		}),
		modkit.WithRegister(func(br phttp.Router) {
			assertionsOut.BadgeRoutes(br)
		}),
	)
	badgesOut = module.MustPortsOf[badgesmod.Out](badgesMod)

	assertionsMod := assertionsmod.New(deps, modkit.WithPorts(assertionsmod.Ports{
		Auth:       auth,
		Badges:     badgesOut.Read,
		Access:     issuersOut.Access,
		Identities: usersOut.Service,
		Notify:     pub,
		Events:     opt.Events,
	}))
	assertionsOut = module.MustPortsOf[assertionsmod.Out](assertionsMod)

	backpackMod := backpackmod.New(deps, modkit.WithPorts(backpackmod.Ports{
		Auth:       auth,
		Identities: usersOut.Service,
		Notify:     pub,
		Events:     opt.Events,
	}))
	backpackOut := module.MustPortsOf[backpackmod.Out](backpackMod)

	dashboardMod := dashboardmod.New(deps, modkit.WithPorts(dashboardmod.Ports{
		Auth:   auth,
		Region: opt.Region,
	}))

	netdashMod := netdashmod.New(deps, modkit.WithPorts(netdashmod.Ports{
		Auth:   auth,
		Access: issuersOut.Access,
		Region: opt.Region,
	}))

	publicMod := publicmod.New(deps, modkit.WithPorts(publicmod.Ports{
		Collections: backpackOut.Public,
	}))

	mods := []module.Module{
		authMod,
		usersMod,
		issuersMod,
		badgesMod,
		assertionsMod,
		backpackMod,
		dashboardMod,
		netdashMod,
		metamod.New(deps),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	// Open Badges documents carry /public IRIs without the version prefix,
	// so the public module mounts on the root router
	module.Register(publicMod.Name(), publicMod.Ports())
	publicMod.MountRoutes(r)
}
