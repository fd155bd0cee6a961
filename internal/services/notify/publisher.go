package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/store"
)

// Port is the seam api services publish through
type Port interface {
	Notify(ctx context.Context, kind, recipient string, params map[string]string)
}

// Publisher emits notification envelopes on the bus
// A nil bus downgrades Notify to a debug logged no-op
type Publisher struct {
	bus store.Bus
	log logger.Logger
	now func() time.Time
}

// NewPublisher constructs a publisher over the given bus, which may be nil
func NewPublisher(bus store.Bus) *Publisher {
	return &Publisher{bus: bus, log: *logger.Named("notify"), now: time.Now}
}

// Notify publishes one envelope, logging instead of returning failures
func (p *Publisher) Notify(ctx context.Context, kind, recipient string, params map[string]string) {
	if p.bus == nil {
		p.log.Debug().Str("kind", kind).Msg("bus disabled, dropping notification")
		return
	}
	if recipient == "" {
		p.log.Warn().Str("kind", kind).Msg("notification without recipient dropped")
		return
	}

	env := Envelope{
		V:         EnvelopeVersion,
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Params:    params,
		At:        p.now().UTC(),
	}
	b, err := json.Marshal(env)
	if err != nil {
		p.log.Warn().Err(err).Str("kind", kind).Msg("notification marshal failed")
		return
	}
	if err := p.bus.Publish(ctx, SubjectPrefix+kind, b); err != nil {
		p.log.Warn().Err(err).Str("kind", kind).Str("id", env.ID).Msg("notification publish failed")
	}
}
