// Package nats owns the messaging connection for the store facade
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsio "github.com/nats-io/nats.go"
)

// Config carries connection settings for Open
type Config struct {
	URL  string
	Name string // connection name shown in monitoring, e.g. "badgehub-api"
}

// Conn wraps a nats connection behind a small surface
type Conn struct {
	nc *natsio.Conn
}

// Open dials the server and waits for a healthy connection
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats: empty url")
	}

	opts := []natsio.Option{
		natsio.Name(cfg.Name),
		natsio.MaxReconnects(-1),
		natsio.ReconnectWait(2 * time.Second),
	}
	nc, err := natsio.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %q: %w", cfg.URL, err)
	}

	if err := flushCtx(ctx, nc); err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats: flush: %w", err)
	}
	return &Conn{nc: nc}, nil
}

func flushCtx(ctx context.Context, nc *natsio.Conn) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	return nc.FlushTimeout(time.Until(deadline))
}

// Publish sends one message on subject
func (c *Conn) Publish(_ context.Context, subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Subscribe starts a queue subscription and dispatches to h
// queue may be empty for a plain subscription
func (c *Conn) Subscribe(subject, queue string, h func(subject string, data []byte)) (*natsio.Subscription, error) {
	cb := func(m *natsio.Msg) { h(m.Subject, m.Data) }
	if queue == "" {
		return c.nc.Subscribe(subject, cb)
	}
	return c.nc.QueueSubscribe(subject, queue, cb)
}

// Ping round trips the connection
func (c *Conn) Ping(ctx context.Context) error {
	if c == nil || c.nc == nil {
		return errors.New("nats: nil conn")
	}
	if !c.nc.IsConnected() {
		return errors.New("nats: not connected")
	}
	return flushCtx(ctx, c.nc)
}

// Close drains in flight messages then closes
func (c *Conn) Close() error {
	if c == nil || c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return err
	}
	return nil
}
