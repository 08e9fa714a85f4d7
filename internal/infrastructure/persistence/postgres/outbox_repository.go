package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/errors"
	"github.com/Haleralex/walletledger/internal/domain/events"
)

var _ ports.OutboxRepository = (*OutboxRepository)(nil)

// OutboxRepository implements the transactional outbox: events are saved in
// the same transaction as the journal write, the poller drains them to the
// broker afterwards.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Save(ctx context.Context, event events.DomainEvent) error {
	q := queryEngine(ctx, r.pool)

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "encoding event", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO outbox (id, event_type, payload, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)`,
		event.EventID(), event.EventType(), payload, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "inserting outbox message", err)
	}
	return nil
}

// FindUnpublished returns the oldest pending messages. FOR UPDATE SKIP
// LOCKED lets several poller instances drain in parallel without double
// delivery inside one polling cycle.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	q := queryEngine(ctx, r.pool)

	rows, err := q.Query(ctx, `
		SELECT id, event_type, payload, attempts
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying outbox", err)
	}
	defer rows.Close()

	var messages []ports.OutboxMessage
	for rows.Next() {
		var msg ports.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.EventType, &msg.Payload, &msg.Attempts); err != nil {
			return nil, errors.Wrap(errors.CodeStore, "scanning outbox message", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStore, "querying outbox", err)
	}
	return messages, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, messageID uuid.UUID) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = $1`,
		messageID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(errors.CodeStore, "marking outbox message published", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, messageID uuid.UUID, reason string) error {
	q := queryEngine(ctx, r.pool)

	_, err := q.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`,
		messageID, reason)
	if err != nil {
		return errors.Wrap(errors.CodeStore, "marking outbox message failed", err)
	}
	return nil
}
