package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"badgehub/internal/core/competency"
	"badgehub/internal/core/region"
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/metrics"
	phttp "badgehub/internal/platform/net/http"
	"badgehub/internal/platform/store"

	arepo "badgehub/internal/services/api/assertions/repo"
	asvc "badgehub/internal/services/api/assertions/service"
	brepo "badgehub/internal/services/api/badges/repo"
	bsvc "badgehub/internal/services/api/badges/service"
	irepo "badgehub/internal/services/api/issuers/repo"
	isvc "badgehub/internal/services/api/issuers/service"
	urepo "badgehub/internal/services/api/users/repo"
	usvc "badgehub/internal/services/api/users/service"
	"badgehub/internal/services/events"
	"badgehub/internal/services/notify"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	root := config.New()
	schedCfg := root.Prefix("SCHEDULER_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	natsCfg := root.Prefix("SERVICE_NATS_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "badgehub-scheduler",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
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

	reg, err := region.NewService(root.Prefix("REGION_").MayString("DATA", ""), *l)
	if err != nil {
		l.Panic().Err(err).Msg("region dataset failed to load")
	}

	promReg := prom.NewRegistry()
	mets := metrics.New(promReg)

	pub := notify.NewPublisher(st.NATS)
	rec := events.New(st.CH, events.FromConfig(root)).WithMetrics(mets)

	// the batch worker and expiry sweep run through the same assertion
	// service the API uses, wired here without the HTTP layer
	issuers := isvc.New(st.PG, irepo.NewPG(), reg, pub)
	badges := bsvc.New(st.PG, brepo.NewPG(), issuers)
	users := usvc.New(st.PG, urepo.NewPG(), pub, rec)
	assertions := asvc.New(st.PG, arepo.NewPG(), badges, issuers, users, pub, rec)

	catalogPath := schedCfg.MayString("CATALOG", "")

	s, err := gocron.NewScheduler()
	if err != nil {
		l.Panic().Err(err).Msg("scheduler init failed")
	}

	// run wraps a job body with a deadline, the outcome counter and a log line
	run := func(name string, fn func(context.Context) error) func() {
		return func() {
			jctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			start := time.Now()
			err := fn(jctx)
			mets.IncJobRun(name, err == nil)
			if err != nil {
				l.Warn().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")
				return
			}
			l.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job done")
		}
	}

	jobs := []struct {
		def  gocron.JobDefinition
		name string
		fn   func(context.Context) error
	}{
		{
			def:  gocron.DurationJob(schedCfg.MayDuration("BATCH_EVERY", 10*time.Second)),
			name: "batch-award-worker",
			fn: func(jctx context.Context) error {
				n, err := assertions.ProcessPending(jctx)
				if n > 0 {
					l.Info().Int("batches", n).Msg("batch awards processed")
				}
				return err
			},
		},
		{
			def:  gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(6, 0, 0))),
			name: "expiry-warnings",
			fn: func(jctx context.Context) error {
				_, err := assertions.NotifyExpiring(jctx)
				return err
			},
		},
		{
			def:  gocron.DurationJob(schedCfg.MayDuration("REGION_EVERY", time.Hour)),
			name: "region-reload",
			fn: func(context.Context) error {
				return reg.Reload()
			},
		},
		{
			def:  gocron.DurationJob(schedCfg.MayDuration("CATALOG_EVERY", time.Hour)),
			name: "competency-refresh",
			fn: func(context.Context) error {
				c, err := competency.LoadCatalogFile(catalogPath)
				if err != nil {
					return err
				}
				l.Debug().Int("rules", c.Rules()).Msg("competency catalog reloaded")
				return nil
			},
		},
		{
			def:  gocron.DurationJob(events.FromConfig(root).FlushInterval),
			name: "event-flush",
			fn: func(jctx context.Context) error {
				return rec.Flush(jctx)
			},
		},
	}
	for _, j := range jobs {
		if _, err := s.NewJob(j.def, gocron.NewTask(run(j.name, j.fn)), gocron.WithName(j.name)); err != nil {
			l.Panic().Err(err).Str("job", j.name).Msg("job registration failed")
		}
	}

	// exposition only ops server (reads SCHEDULER_API_PORT)
	srv := phttp.NewServer(schedCfg)
	srv.Router().Handle("/metrics", metrics.Handler(promReg))
	go func() { _ = srv.Run(ctx) }()

	s.Start()
	l.Info().Int("jobs", len(jobs)).Msg("scheduler running")

	<-ctx.Done()

	if err := s.Shutdown(); err != nil {
		l.Error().Err(err).Msg("scheduler shutdown failed")
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	if err := rec.Flush(shCtx); err != nil {
		l.Warn().Err(err).Msg("final event flush failed")
	}
}
