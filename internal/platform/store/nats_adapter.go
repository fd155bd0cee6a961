package store

import (
	"context"
	"errors"

	natsx "badgehub/internal/platform/store/nats"
)

// newNATSAdapter wraps an open *natsx.Conn as the store.Bus seam
func newNATSAdapter(c *natsx.Conn) Bus {
	return &natsAdapter{inner: c}
}

// natsAdapter adapts *natsx.Conn to the store.Bus interface
type natsAdapter struct {
	inner *natsx.Conn
}

var _ Bus = (*natsAdapter)(nil)

func (a *natsAdapter) Publish(ctx context.Context, subject string, data []byte) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil bus adapter")
	}
	return a.inner.Publish(ctx, subject, data)
}

func (a *natsAdapter) Subscribe(subject, queue string, h func(subject string, data []byte)) (Subscription, error) {
	if a == nil || a.inner == nil {
		return nil, errors.New("store: nil bus adapter")
	}
	return a.inner.Subscribe(subject, queue, h)
}

func (a *natsAdapter) Close() error {
	if a == nil || a.inner == nil {
		return nil
	}
	return a.inner.Close()
}

// Ping verifies the connection is live
func (a *natsAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil bus adapter")
	}
	return a.inner.Ping(ctx)
}
