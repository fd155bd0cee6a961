package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"badgehub/internal/platform/store"
)

type fakeSink struct {
	mu      sync.Mutex
	inserts [][][]any
	tables  []string
	err     error
}

func (f *fakeSink) Insert(_ context.Context, table string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	rows, ok := data.([][]any)
	if !ok {
		return errors.New("bad shape")
	}
	f.tables = append(f.tables, table)
	f.inserts = append(f.inserts, rows)
	return nil
}

func (f *fakeSink) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSink) Close() error { return nil }

var _ store.Clickhouse = (*fakeSink)(nil)

func (f *fakeSink) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, batch := range f.inserts {
		n += len(batch)
	}
	return n
}

func TestRecordBuffersUntilBatchSize(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	r := New(sink, Config{BatchSize: 3})

	ctx := context.Background()
	r.Record(ctx, Event{Kind: KindBadgeIssued, IssuerSlug: "tu-berlin", BadgeSlug: "go-basics"})
	r.Record(ctx, Event{Kind: KindBadgeIssued, IssuerSlug: "tu-berlin", BadgeSlug: "go-basics"})
	if got := sink.rowCount(); got != 0 {
		t.Fatalf("flushed %d rows before batch size", got)
	}
	if got := r.Buffered(); got != 2 {
		t.Fatalf("buffered = %d, want 2", got)
	}

	r.Record(ctx, Event{Kind: KindBadgeRevoked, AssertionID: "a-1"})
	if got := sink.rowCount(); got != 3 {
		t.Fatalf("rows = %d, want 3 after size trigger", got)
	}
	if got := r.Buffered(); got != 0 {
		t.Fatalf("buffered = %d, want 0 after flush", got)
	}
	if sink.tables[0] != Table {
		t.Fatalf("table = %q, want %q", sink.tables[0], Table)
	}
}

func TestRecordRowShape(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	r := New(sink, Config{BatchSize: 100})
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	r.Record(context.Background(), Event{
		At:          at,
		Kind:        KindBadgeIssued,
		IssuerSlug:  "tu-berlin",
		BadgeSlug:   "go-basics",
		AssertionID: "a-1",
		UserID:      "u-1",
		Meta:        map[string]any{"batch": "b-9"},
	})
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	row := sink.inserts[0][0]
	if len(row) != 7 {
		t.Fatalf("row has %d columns, want 7", len(row))
	}
	ts, ok := row[0].(time.Time)
	if !ok || ts.Location() != time.UTC {
		t.Fatalf("ts = %#v, want UTC time", row[0])
	}
	if ts.Hour() != 7 {
		t.Fatalf("ts hour = %d, want 7 (UTC)", ts.Hour())
	}
	if row[1] != KindBadgeIssued || row[2] != "tu-berlin" || row[3] != "go-basics" {
		t.Fatalf("row = %v", row)
	}
	if row[6] != `{"batch":"b-9"}` {
		t.Fatalf("meta = %v", row[6])
	}
}

func TestRecordNoSinkIsNoop(t *testing.T) {
	t.Parallel()

	r := New(nil, Config{})
	r.Record(context.Background(), Event{Kind: KindUserRegistered})
	if got := r.Buffered(); got != 0 {
		t.Fatalf("buffered = %d, want 0 with nil sink", got)
	}
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush with nil sink: %v", err)
	}
}

func TestFlushRequeuesOnFailure(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("ch down")}
	r := New(sink, Config{BatchSize: 100})

	r.Record(context.Background(), Event{Kind: KindBadgeImported, UserID: "u-2"})
	if err := r.Flush(context.Background()); err == nil {
		t.Fatal("Flush succeeded against a failing sink")
	}
	if got := r.Buffered(); got != 1 {
		t.Fatalf("buffered = %d, want 1 requeued", got)
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush after recovery: %v", err)
	}
	if got := sink.rowCount(); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestFlushEmptyBufferSkipsInsert(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	r := New(sink, Config{})
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sink.inserts) != 0 {
		t.Fatalf("inserts = %d, want 0", len(sink.inserts))
	}
}

func TestRunDrainsOnCancel(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	r := New(sink, Config{BatchSize: 100, FlushInterval: time.Hour})
	r.Record(context.Background(), Event{Kind: KindCollectionShared, UserID: "u-3"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if got := sink.rowCount(); got != 1 {
		t.Fatalf("rows = %d, want 1 drained on shutdown", got)
	}
}
