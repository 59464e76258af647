package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/crdb"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

type fakeStore struct {
	records   []crdb.OutboxRecord
	published map[uuid.UUID]bool
	failures  map[uuid.UUID]int
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) GetUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]crdb.OutboxRecord, error) {
	var out []crdb.OutboxRecord
	for _, r := range f.records {
		if !f.published[r.ID] && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	f.published[id] = true
	return nil
}

func (f *fakeStore) RecordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) error {
	f.failures[id]++
	return nil
}

type fakeSender struct {
	sent []amqp.Publishing
	keys []string
	fail map[string]bool
}

func (f *fakeSender) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	if f.fail[msg.MessageId] {
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, key)
	f.sent = append(f.sent, msg)
	return nil
}

func TestPublisher_Flush(t *testing.T) {
	ok := crdb.OutboxRecord{ID: uuid.New(), EventType: "notification.ticket", Payload: []byte(`{}`), DedupeKey: "a", CreatedAt: time.Now()}
	bad := crdb.OutboxRecord{ID: uuid.New(), EventType: "reservation.finalize", Payload: []byte(`{}`), DedupeKey: "b", CreatedAt: time.Now()}
	store := &fakeStore{records: []crdb.OutboxRecord{ok, bad}, published: map[uuid.UUID]bool{}, failures: map[uuid.UUID]int{}}
	sender := &fakeSender{fail: map[string]bool{"b": true}}
	p := NewPublisher(store, sender, time.Second, 10, observability.NewLogger())

	n, err := p.Flush(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || !store.published[ok.ID] || store.published[bad.ID] {
		t.Errorf("unexpected publish state %d %v", n, store.published)
	}
	if store.failures[bad.ID] != 1 {
		t.Errorf("expected one recorded failure, got %d", store.failures[bad.ID])
	}
	if len(sender.sent) != 1 || sender.keys[0] != "notification.ticket" || sender.sent[0].MessageId != "a" {
		t.Errorf("unexpected publishing %+v", sender.sent)
	}
}
