package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"badgehub/internal/adapters/mail"
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/metrics"
	phttp "badgehub/internal/platform/net/http"
	"badgehub/internal/platform/store"

	"badgehub/internal/services/notify"
)

func main() {
	_ = godotenv.Load()

	root := config.New()
	ntfCfg := root.Prefix("NOTIFIER_")
	natsCfg := root.Prefix("SERVICE_NATS_")
	mailCfg := root.Prefix("MAIL_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the notifier is the bus consumer, so NATS is not optional here
	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "badgehub-notifier",
			NATS: store.NATSConfig{
				Enabled: true,
				URL:     natsCfg.MustString("URL"),
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

	sender, err := mail.New(mail.Config{
		Backend:       mailCfg.MayString("BACKEND", ""),
		SendgridKey:   root.MayString("SENDGRID_API_KEY", ""),
		FromName:      mailCfg.MayString("FROM_NAME", "BadgeHub"),
		FromAddr:      mailCfg.MayString("FROM_ADDR", "noreply@badgehub.example"),
		SubjectPrefix: mailCfg.MayString("SUBJECT_PREFIX", "[BadgeHub] "),
	})
	if err != nil {
		l.Panic().Err(err).Msg("mail backend failed")
	}

	promReg := prom.NewRegistry()
	mets := metrics.New(promReg)

	// exposition only ops server (reads NOTIFIER_API_PORT)
	srv := phttp.NewServer(ntfCfg)
	srv.Router().Handle("/metrics", metrics.Handler(promReg))
	go func() { _ = srv.Run(ctx) }()
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	c := notify.NewConsumer(st.NATS, sender, ntfCfg.MayDuration("DEDUPE_TTL", 0)).WithMetrics(mets)
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		l.Panic().Err(err).Msg("notifier stopped")
	}
}
