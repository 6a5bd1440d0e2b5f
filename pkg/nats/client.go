// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package nats is a thin wrapper around the nats.go client: connection
// management with automatic reconnect, and publish/subscribe helpers. The
// ingestion core's downstream sink (internal/sink) uses it to ship clean
// Read batches to a message bus subject; it carries no RFID-specific
// knowledge of its own.
package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rfid-ingest/core/pkg/log"
)

var scoped = log.For("nats", "client")

// Client wraps a NATS connection with subscription bookkeeping.
type Client struct {
	conn          *nats.Conn
	subscriptions []*nats.Subscription
	mu            sync.Mutex
}

// MessageHandler processes a single received message.
type MessageHandler func(subject string, data []byte)

// Connect dials the NATS server described by cfg. Reconnection is handled
// internally by nats.go; disconnect/reconnect/error events are logged but
// otherwise transparent to the caller.
func Connect(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("nats: address is required")
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	opts = append(opts,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				scoped.Warnf("disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			scoped.Infof("reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			scoped.Errorf("async error: %v", err)
		}),
	)

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect failed: %w", err)
	}

	scoped.Infof("connected to %s", cfg.Address)
	return &Client{conn: nc}, nil
}

// Subscribe registers a handler for a subject.
func (c *Client) Subscribe(subject string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats: subscribe to %q failed: %w", subject, err)
	}

	c.subscriptions = append(c.subscriptions, sub)
	return nil
}

// Publish sends data on subject.
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats: publish to %q failed: %w", subject, err)
	}
	return nil
}

// Request sends data and waits for a single reply, bounded by ctx.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("nats: request to %q failed: %w", subject, err)
	}
	return msg.Data, nil
}

// Flush blocks until all buffered publishes have been sent to the server.
func (c *Client) Flush() error {
	return c.conn.Flush()
}

// IsConnected reports whether the underlying connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subscriptions {
		_ = sub.Unsubscribe()
	}
	c.subscriptions = nil

	if c.conn != nil {
		c.conn.Close()
	}
}
