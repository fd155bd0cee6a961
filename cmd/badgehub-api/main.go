// @title         BadgeHub API
// @version       0.1.0
// @description   Issuers, badge classes, assertions, backpack and dashboards

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"badgehub/internal/core/region"
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/metrics"
	phttp "badgehub/internal/platform/net/http"
	"badgehub/internal/platform/store"
	"badgehub/internal/platform/store/pg/migrations"

	"badgehub/internal/services/api"
	"badgehub/internal/services/events"
)

func main() {
	_ = godotenv.Load()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	natsCfg := root.Prefix("SERVICE_NATS_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// open the platform store (postgres required, analytics and bus optional)
	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "badgehub-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled: chCfg.MayBool("ENABLED", false),
				URL:     chCfg.MayString("DBURL", ""),
			},
			NATS: store.NATSConfig{
				Enabled: natsCfg.MayBool("ENABLED", false),
				URL:     natsCfg.MayString("URL", ""),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if n, err := migrations.Apply(ctx, st.PG, *l); err != nil {
		l.Panic().Err(err).Msg("migrations failed")
	} else if n > 0 {
		l.Info().Int("applied", n).Msg("schema migrated")
	}

	// regional dataset: embedded snapshot plus optional override file
	reg, err := region.NewService(root.Prefix("REGION_").MayString("DATA", ""), *l)
	if err != nil {
		l.Panic().Err(err).Msg("region dataset failed to load")
	}
	if err := reg.Watch(ctx); err != nil {
		l.Warn().Err(err).Msg("region hot reload unavailable")
	}

	promReg := prom.NewRegistry()
	mets := metrics.New(promReg)

	// analytics recorder; flushed on interval and once more on shutdown
	rec := events.New(st.CH, events.FromConfig(root)).WithMetrics(mets)
	go func() { _ = rec.Run(ctx) }()

	// http server (reads CORE_API_API_PORT)
	srv := phttp.NewServer(apiCfg)
	srv.Router().Use(metrics.Middleware(mets))
	srv.Router().Handle("/metrics", metrics.Handler(promReg))

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			Region:         reg,
			Events:         rec,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
		if err := rec.Flush(shCtx); err != nil {
			l.Warn().Err(err).Msg("final event flush failed")
		}
	}()

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
