package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Haleralex/walletledger/internal/application/ports"
	"github.com/Haleralex/walletledger/internal/domain/events"
)

type passthroughUOW struct{}

func (passthroughUOW) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (passthroughUOW) ExecuteWithRetry(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeOutbox struct {
	pending   []ports.OutboxMessage
	published []uuid.UUID
	failed    map[uuid.UUID]string
}

func (f *fakeOutbox) Save(context.Context, events.DomainEvent) error { return nil }

func (f *fakeOutbox) FindUnpublished(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[id] = reason
	return nil
}

type fakeRawPublisher struct {
	failFor  map[uuid.UUID]bool
	received []string
	payloads [][]byte
	byType   map[string]uuid.UUID
}

func (p *fakeRawPublisher) PublishRaw(_ context.Context, eventType string, payload []byte) error {
	if id, ok := p.byType[eventType]; ok && p.failFor[id] {
		return fmt.Errorf("broker unavailable")
	}
	p.received = append(p.received, eventType)
	p.payloads = append(p.payloads, payload)
	return nil
}

func testPoller(outbox *fakeOutbox, publisher *fakeRawPublisher) *OutboxPoller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOutboxPoller(passthroughUOW{}, outbox, publisher, time.Millisecond, 10, logger)
}

func TestOutboxPoller_Drain(t *testing.T) {
	t.Run("PublishesAndMarks", func(t *testing.T) {
		msg1 := ports.OutboxMessage{ID: uuid.New(), EventType: "transfer.completed", Payload: []byte(`{"a":1}`)}
		msg2 := ports.OutboxMessage{ID: uuid.New(), EventType: "hold.created", Payload: []byte(`{"b":2}`)}
		outbox := &fakeOutbox{pending: []ports.OutboxMessage{msg1, msg2}}
		publisher := &fakeRawPublisher{}

		testPoller(outbox, publisher).drain(context.Background())

		assert.Equal(t, []string{"transfer.completed", "hold.created"}, publisher.received)
		assert.Equal(t, []uuid.UUID{msg1.ID, msg2.ID}, outbox.published)
		assert.Empty(t, outbox.failed)
	})

	t.Run("FailureMarksAndContinues", func(t *testing.T) {
		bad := ports.OutboxMessage{ID: uuid.New(), EventType: "transfer.completed", Payload: []byte(`{}`)}
		good := ports.OutboxMessage{ID: uuid.New(), EventType: "hold.created", Payload: []byte(`{}`)}
		outbox := &fakeOutbox{pending: []ports.OutboxMessage{bad, good}}
		publisher := &fakeRawPublisher{
			failFor: map[uuid.UUID]bool{bad.ID: true},
			byType:  map[string]uuid.UUID{"transfer.completed": bad.ID},
		}

		testPoller(outbox, publisher).drain(context.Background())

		assert.Equal(t, []string{"hold.created"}, publisher.received)
		assert.Equal(t, []uuid.UUID{good.ID}, outbox.published)
		assert.Contains(t, outbox.failed, bad.ID)
	})

	t.Run("ParkedMessagesAreSkipped", func(t *testing.T) {
		parked := ports.OutboxMessage{
			ID: uuid.New(), EventType: "transfer.completed",
			Payload: []byte(`{}`), Attempts: maxPublishAttempts,
		}
		outbox := &fakeOutbox{pending: []ports.OutboxMessage{parked}}
		publisher := &fakeRawPublisher{}

		testPoller(outbox, publisher).drain(context.Background())

		assert.Empty(t, publisher.received)
		assert.Empty(t, outbox.published)
		assert.Empty(t, outbox.failed)
	})
}

func TestOutboxPoller_RunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{}
	poller := testPoller(outbox, &fakeRawPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
