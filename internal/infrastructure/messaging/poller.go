// Package messaging drains the transactional outbox to the event broker.
package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haleralex/walletledger/internal/application/ports"
)

// RawPublisher publishes a serialized outbox payload.
type RawPublisher interface {
	PublishRaw(ctx context.Context, eventType string, payload []byte) error
}

// maxPublishAttempts parks a message after repeated failures; parked
// messages stay in the table for operator inspection.
const maxPublishAttempts = 10

// OutboxPoller periodically moves unpublished outbox messages to the broker.
// Delivery is at-least-once: a crash between publish and MarkPublished means
// the message goes out again on the next cycle.
type OutboxPoller struct {
	uow       ports.UnitOfWork
	outbox    ports.OutboxRepository
	publisher RawPublisher
	interval  time.Duration
	batch     int
	logger    *slog.Logger
}

func NewOutboxPoller(
	uow ports.UnitOfWork,
	outbox ports.OutboxRepository,
	publisher RawPublisher,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *OutboxPoller {
	return &OutboxPoller{
		uow:       uow,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		logger:    logger,
	}
}

// Run polls until the context is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox poller started",
		slog.Duration("interval", p.interval), slog.Int("batch", p.batch))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// drain publishes one batch. The SELECT ... FOR UPDATE SKIP LOCKED in the
// repository keeps concurrent pollers off each other's messages, so the
// whole batch runs in one transaction.
func (p *OutboxPoller) drain(ctx context.Context) {
	err := p.uow.Execute(ctx, func(txCtx context.Context) error {
		messages, err := p.outbox.FindUnpublished(txCtx, p.batch)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if msg.Attempts >= maxPublishAttempts {
				continue
			}
			if err := p.publisher.PublishRaw(txCtx, msg.EventType, msg.Payload); err != nil {
				p.logger.WarnContext(txCtx, "outbox publish failed",
					slog.String("event_type", msg.EventType),
					slog.String("message_id", msg.ID.String()),
					slog.String("error", err.Error()))
				if err := p.outbox.MarkFailed(txCtx, msg.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			if err := p.outbox.MarkPublished(txCtx, msg.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.logger.WarnContext(ctx, "outbox drain failed", slog.String("error", err.Error()))
	}
}
