package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"badgehub/internal/adapters/mail"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/store"
)

type published struct {
	subject string
	data    []byte
}

type fakeBus struct {
	mu        sync.Mutex
	published []published
	pubErr    error

	subject string
	queue   string
	handler func(subject string, data []byte)
	subErr  error
}

func (f *fakeBus) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, published{subject: subject, data: data})
	return nil
}

func (f *fakeBus) Subscribe(subject, queue string, h func(string, []byte)) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.subject = subject
	f.queue = queue
	f.handler = h
	return fakeSub{}, nil
}

func (f *fakeBus) Close() error { return nil }

var _ store.Bus = (*fakeBus)(nil)

type fakeSub struct{}

func (fakeSub) Unsubscribe() error { return nil }

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func fullParams() map[string]string {
	return map[string]string{
		"first_name":   "Ada",
		"badge_name":   "Go Basics",
		"issuer_name":  "TU Berlin",
		"network_name": "Berlin Learning Alliance",
		"expires_on":   "2025-12-31",
	}
}

func TestPublisherBuildsEnvelope(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	p := NewPublisher(bus)
	p.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }

	p.Notify(context.Background(), KindWelcome, "ada@example.org", map[string]string{"first_name": "Ada"})

	if len(bus.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(bus.published))
	}
	got := bus.published[0]
	if got.subject != SubjectPrefix+KindWelcome {
		t.Fatalf("subject = %q", got.subject)
	}

	var env Envelope
	if err := json.Unmarshal(got.data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.V != EnvelopeVersion {
		t.Fatalf("v = %d", env.V)
	}
	if env.ID == "" {
		t.Fatal("envelope id empty")
	}
	if env.Kind != KindWelcome || env.Recipient != "ada@example.org" {
		t.Fatalf("envelope = %+v", env)
	}
	if !env.At.Equal(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("at = %v", env.At)
	}
}

func TestPublisherNilBusIsNoop(t *testing.T) {
	t.Parallel()

	p := NewPublisher(nil)
	p.Notify(context.Background(), KindWelcome, "ada@example.org", nil)
}

func TestPublisherSwallowsFailures(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{pubErr: errors.New("nats down")}
	p := NewPublisher(bus)
	p.Notify(context.Background(), KindBadgeAwarded, "ada@example.org", nil)

	p2 := NewPublisher(&fakeBus{})
	p2.Notify(context.Background(), KindBadgeAwarded, "", nil)
}

func TestRenderWelcome(t *testing.T) {
	t.Parallel()

	msg, err := Render(Envelope{
		V:         EnvelopeVersion,
		Kind:      KindWelcome,
		Recipient: "ada@example.org",
		Params:    map[string]string{"first_name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.Subject != "Welcome to BadgeHub" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if len(msg.To) != 1 || msg.To[0] != "ada@example.org" {
		t.Fatalf("to = %v", msg.To)
	}
	if !strings.Contains(msg.Text, "Hi Ada,") {
		t.Fatalf("text = %q", msg.Text)
	}
	if !strings.Contains(msg.HTML, "<strong>BadgeHub</strong>") {
		t.Fatalf("html = %q", msg.HTML)
	}
}

func TestRenderAllKinds(t *testing.T) {
	t.Parallel()

	kinds := []string{KindWelcome, KindBadgeAwarded, KindBadgeExpiring, KindImportFinished, KindNetworkInvite}
	for _, kind := range kinds {
		msg, err := Render(Envelope{V: EnvelopeVersion, Kind: kind, Recipient: "ada@example.org", Params: fullParams()})
		if err != nil {
			t.Fatalf("Render(%s): %v", kind, err)
		}
		if msg.Subject == "" || msg.Text == "" || msg.HTML == "" {
			t.Fatalf("Render(%s) produced empty parts", kind)
		}
	}
}

func TestRenderMissingParamsStillRenders(t *testing.T) {
	t.Parallel()

	msg, err := Render(Envelope{V: EnvelopeVersion, Kind: KindWelcome, Recipient: "ada@example.org"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(msg.Text, "Hi,") {
		t.Fatalf("text = %q", msg.Text)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Render(Envelope{V: EnvelopeVersion, Kind: "carrier_pigeon", Recipient: "ada@example.org"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestRenderEscapesHTMLParams(t *testing.T) {
	t.Parallel()

	params := fullParams()
	params["badge_name"] = `<script>alert(1)</script>`
	msg, err := Render(Envelope{V: EnvelopeVersion, Kind: KindBadgeAwarded, Recipient: "ada@example.org", Params: params})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatalf("html not escaped: %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Fatalf("html = %q", msg.HTML)
	}
}

func mustEnvelope(t *testing.T, env Envelope) []byte {
	t.Helper()
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestConsumerHandleSendsMail(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	c := NewConsumer(&fakeBus{}, sender, time.Minute)

	data := mustEnvelope(t, Envelope{V: EnvelopeVersion, ID: "e-1", Kind: KindWelcome, Recipient: "ada@example.org"})
	if err := c.Handle(context.Background(), data); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("sent %d mails, want 1", sender.count())
	}
	if sender.sent[0].To[0] != "ada@example.org" {
		t.Fatalf("to = %v", sender.sent[0].To)
	}
}

func TestConsumerDedupesWithinTTL(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	c := NewConsumer(&fakeBus{}, sender, time.Minute)

	data := mustEnvelope(t, Envelope{V: EnvelopeVersion, ID: "e-dup", Kind: KindWelcome, Recipient: "ada@example.org"})
	for i := 0; i < 3; i++ {
		if err := c.Handle(context.Background(), data); err != nil {
			t.Fatalf("Handle #%d: %v", i, err)
		}
	}
	if sender.count() != 1 {
		t.Fatalf("sent %d mails, want 1", sender.count())
	}
}

func TestConsumerDedupeExpires(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	c := NewConsumer(&fakeBus{}, sender, time.Minute)
	t0 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return t0 }

	data := mustEnvelope(t, Envelope{V: EnvelopeVersion, ID: "e-ttl", Kind: KindWelcome, Recipient: "ada@example.org"})
	if err := c.Handle(context.Background(), data); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	c.now = func() time.Time { return t0.Add(2 * time.Minute) }
	if err := c.Handle(context.Background(), data); err != nil {
		t.Fatalf("Handle after ttl: %v", err)
	}
	if sender.count() != 2 {
		t.Fatalf("sent %d mails, want 2", sender.count())
	}
}

func TestConsumerRejectsBadEnvelopes(t *testing.T) {
	t.Parallel()

	c := NewConsumer(&fakeBus{}, &fakeSender{}, time.Minute)

	if err := c.Handle(context.Background(), []byte("{not json")); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("garbage: err = %v", err)
	}

	wrongV := mustEnvelope(t, Envelope{V: 99, ID: "e-2", Kind: KindWelcome, Recipient: "ada@example.org"})
	if err := c.Handle(context.Background(), wrongV); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("version: err = %v", err)
	}

	noRcpt := mustEnvelope(t, Envelope{V: EnvelopeVersion, ID: "e-3", Kind: KindWelcome})
	if err := c.Handle(context.Background(), noRcpt); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("recipient: err = %v", err)
	}
}

func TestConsumerRunSubscribesAndStops(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	sender := &fakeSender{}
	c := NewConsumer(bus, sender, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		bus.mu.Lock()
		h := bus.handler
		bus.mu.Unlock()
		if h != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("subscribe never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if bus.subject != SubjectWildcard || bus.queue != Queue {
		t.Fatalf("subscribed to %q queue %q", bus.subject, bus.queue)
	}

	bus.handler(SubjectPrefix+KindWelcome, mustEnvelope(t, Envelope{
		V: EnvelopeVersion, ID: "e-run", Kind: KindWelcome, Recipient: "ada@example.org",
	}))
	if sender.count() != 1 {
		t.Fatalf("sent %d mails, want 1", sender.count())
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestConsumerSubscribeFailure(t *testing.T) {
	t.Parallel()

	c := NewConsumer(&fakeBus{subErr: errors.New("no broker")}, &fakeSender{}, time.Minute)
	if err := c.Run(context.Background()); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}
