// Package events records badge lifecycle events to the analytics sink
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/metrics"
	"badgehub/internal/platform/store"
)

// Event kinds on the analytics trail
const (
	KindBadgeIssued      = "badge.issued"
	KindBadgeRevoked     = "badge.revoked"
	KindBadgeImported    = "badge.imported"
	KindUserRegistered   = "user.registered"
	KindCollectionShared = "collection.shared"
	KindAssertionShared  = "assertion.shared"
)

// Table is the clickhouse destination for badge events
const Table = "badge_events"

// Schema documents the expected table, applied out of band
// Column order matches the rows Record builds
const Schema = `CREATE TABLE IF NOT EXISTS badge_events (
  ts           DateTime64(3, 'UTC'),
  kind         LowCardinality(String),
  issuer_slug  String,
  badge_slug   String,
  assertion_id String,
  user_id      String,
  meta         String
) ENGINE = MergeTree
ORDER BY (kind, ts)`

// maxBuffered caps the retry buffer when clickhouse is unreachable
const maxBuffered = 10000

// Port is the seam services record through
type Port interface {
	Record(ctx context.Context, ev Event)
}

// Event is one analytics row
type Event struct {
	At          time.Time
	Kind        string
	IssuerSlug  string
	BadgeSlug   string
	AssertionID string
	UserID      string
	Meta        map[string]any
}

// Config controls buffering
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// FromConfig reads with EVENTS_ prefix
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("EVENTS_")
	return Config{
		BatchSize:     c.MayInt("BATCH", 200),
		FlushInterval: c.MayDuration("FLUSH_EVERY", time.Minute),
	}
}

// Recorder buffers events and writes them to clickhouse in batches
// A nil sink turns Record into a debug logged no-op
type Recorder struct {
	ch  store.Clickhouse
	log logger.Logger
	cfg Config
	met *metrics.Recorder
	now func() time.Time

	mu  sync.Mutex
	buf [][]any
}

// New constructs a recorder over the given sink, which may be nil
func New(ch store.Clickhouse, cfg Config) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	return &Recorder{ch: ch, log: *logger.Named("events"), cfg: cfg, now: time.Now}
}

// WithMetrics attaches process counters; the lifecycle kinds double as
// prometheus counters even when the sink is disabled
func (r *Recorder) WithMetrics(m *metrics.Recorder) *Recorder {
	r.met = m
	return r
}

// Record buffers one event; a full buffer triggers a synchronous flush
// Failures never propagate to the caller, analytics must not break requests
func (r *Recorder) Record(ctx context.Context, ev Event) {
	switch ev.Kind {
	case KindBadgeIssued:
		r.met.IncAssertionIssued()
	case KindBadgeRevoked:
		r.met.IncAssertionRevoked()
	case KindBadgeImported:
		r.met.IncImport("stored")
	}

	if r.ch == nil {
		r.log.Debug().Str("kind", ev.Kind).Msg("analytics sink disabled, dropping event")
		return
	}

	at := ev.At
	if at.IsZero() {
		at = r.now()
	}
	meta := "{}"
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			meta = string(b)
		}
	}

	r.mu.Lock()
	r.buf = append(r.buf, []any{at.UTC(), ev.Kind, ev.IssuerSlug, ev.BadgeSlug, ev.AssertionID, ev.UserID, meta})
	full := len(r.buf) >= r.cfg.BatchSize
	r.mu.Unlock()

	if full {
		if err := r.Flush(ctx); err != nil {
			r.log.Warn().Err(err).Msg("event flush failed")
		}
	}
}

// Flush writes everything buffered so far
// On failure the batch is requeued, oldest rows dropped past the cap
func (r *Recorder) Flush(ctx context.Context) error {
	if r.ch == nil {
		return nil
	}

	r.mu.Lock()
	rows := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	if err := r.ch.Insert(ctx, Table, rows); err != nil {
		r.mu.Lock()
		r.buf = append(rows, r.buf...)
		if over := len(r.buf) - maxBuffered; over > 0 {
			r.buf = r.buf[over:]
			r.log.Warn().Int("dropped", over).Msg("event buffer over cap")
		}
		r.mu.Unlock()
		return err
	}

	r.met.AddEventsFlushed(len(rows))
	r.log.Debug().Int("rows", len(rows)).Msg("flushed badge events")
	return nil
}

// Run flushes on an interval until ctx is done, then drains once
func (r *Recorder) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.FlushInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.Flush(dctx); err != nil {
				r.log.Warn().Err(err).Msg("final event flush failed")
			}
			return ctx.Err()
		case <-t.C:
			if err := r.Flush(ctx); err != nil {
				r.log.Warn().Err(err).Msg("event flush failed")
			}
		}
	}
}

// Buffered reports how many rows wait for the next flush
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
