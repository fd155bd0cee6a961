package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"badgehub/internal/adapters/mail"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/metrics"
	"badgehub/internal/platform/store"
)

// defaultDedupeTTL is how long envelope ids are remembered
const defaultDedupeTTL = 10 * time.Minute

// Consumer drains notification envelopes from the bus and sends mail
type Consumer struct {
	bus    store.Bus
	mailer mail.Sender
	log    logger.Logger
	ttl    time.Duration
	met    *metrics.Recorder
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewConsumer constructs a consumer; ttl <= 0 uses the default window
func NewConsumer(bus store.Bus, mailer mail.Sender, ttl time.Duration) *Consumer {
	if bus == nil {
		panic("notify.Consumer requires a non nil Bus")
	}
	if mailer == nil {
		panic("notify.Consumer requires a non nil Sender")
	}
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Consumer{
		bus:    bus,
		mailer: mailer,
		log:    *logger.Named("notifier"),
		ttl:    ttl,
		now:    time.Now,
		seen:   map[string]time.Time{},
	}
}

// WithMetrics attaches delivery counters
func (c *Consumer) WithMetrics(m *metrics.Recorder) *Consumer {
	c.met = m
	return c
}

// Run subscribes on the queue group and blocks until ctx is done
func (c *Consumer) Run(ctx context.Context) error {
	sub, err := c.bus.Subscribe(SubjectWildcard, Queue, func(subject string, data []byte) {
		if err := c.Handle(ctx, data); err != nil {
			c.log.Warn().Err(err).Str("subject", subject).Msg("notification failed")
		}
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "subscribe %s", SubjectWildcard)
	}
	defer func() { _ = sub.Unsubscribe() }()

	c.log.Info().Str("subject", SubjectWildcard).Str("queue", Queue).Msg("notifier listening")
	<-ctx.Done()
	return ctx.Err()
}

// Handle processes one raw envelope
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "unparseable envelope")
	}
	if env.V != EnvelopeVersion {
		return perr.InvalidArgf("unsupported envelope version %d", env.V)
	}
	if env.Recipient == "" {
		return perr.InvalidArgf("envelope has no recipient")
	}
	if c.duplicate(env.ID) {
		c.log.Debug().Str("id", env.ID).Str("kind", env.Kind).Msg("duplicate envelope skipped")
		return nil
	}

	msg, err := Render(env)
	if err != nil {
		return err
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		c.met.IncEmail(env.Kind, false)
		return err
	}
	c.met.IncEmail(env.Kind, true)
	return nil
}

// duplicate remembers ids for the ttl window, sweeping stale ones as it goes
func (c *Consumer) duplicate(id string) bool {
	if id == "" {
		return false
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.seen {
		if now.Sub(t) > c.ttl {
			delete(c.seen, k)
		}
	}
	if _, dup := c.seen[id]; dup {
		return true
	}
	c.seen[id] = now
	return false
}
