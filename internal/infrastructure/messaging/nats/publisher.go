// Package nats publishes domain events to NATS. Subjects follow
// "walletledger.events.<event-type>"; payloads are the JSON-serialized
// events from the outbox.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/events"
)

const subjectPrefix = "walletledger.events."

var _ ports.EventPublisher = (*Publisher)(nil)

// Config holds the NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig connects to a local server and reconnects indefinitely.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "walletledger",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Publisher sends events over a NATS connection.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher dials NATS and returns a connected publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// NewPublisherWithConn wraps an existing connection. Used by tests.
func NewPublisherWithConn(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := marshalEvent(event)
	if err != nil {
		return err
	}
	return p.publishRaw(event.EventType(), payload)
}

func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return p.conn.Flush()
}

// PublishRaw publishes an already-serialized outbox payload.
func (p *Publisher) PublishRaw(ctx context.Context, eventType string, payload []byte) error {
	return p.publishRaw(eventType, payload)
}

func (p *Publisher) publishRaw(eventType string, payload []byte) error {
	if err := p.conn.Publish(subjectPrefix+eventType, payload); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}
	return nil
}

func marshalEvent(event events.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// Healthy reports whether the connection is up. Feeds the readiness probe.
func (p *Publisher) Healthy() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", p.conn.Status())
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
