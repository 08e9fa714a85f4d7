// Package ports - EventPublisher for publishing domain events.
//
// Pattern: Publisher/Subscriber + Transactional Outbox
// - Use cases save events to the outbox in the same transaction as the
//   journal write
// - A poller drains the outbox to the broker, so a committed entry is never
//   silently dropped
package ports

import (
	"context"

	"github.com/Haleralex/walletledger/internal/domain/events"
	"github.com/google/uuid"
)

// EventPublisher publishes domain events to the message broker.
//
// Delivery is at-least-once; consumers must be idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch publishes several events in one call. The batch fails as
	// a whole if any event cannot be published.
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// OutboxMessage is one serialized event waiting for publication.
type OutboxMessage struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
	Attempts  int
}

// OutboxRepository implements the Transactional Outbox pattern.
//
// Save runs in the same transaction as the business operation; the poller
// reads unpublished messages and forwards them to the EventPublisher.
type OutboxRepository interface {
	// Save stores the event in the outbox table. Must be called with the
	// unit-of-work context of the business operation.
	Save(ctx context.Context, event events.DomainEvent) error

	FindUnpublished(ctx context.Context, limit int) ([]OutboxMessage, error)

	MarkPublished(ctx context.Context, messageID uuid.UUID) error

	// MarkFailed bumps the attempt counter and records the last error.
	MarkFailed(ctx context.Context, messageID uuid.UUID, reason string) error
}
