package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
	Attempts      int
}

type outbox struct {
	tx pgx.Tx
}

// Enqueue ignores a message whose dedupe key was already written.
func (o outbox) Enqueue(ctx context.Context, msg domain.OutboxMessage) error {
	dedupe := msg.DedupeKey
	if dedupe == "" {
		dedupe = uuid.NewString()
	}
	_, err := o.tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, uuid.New(), msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, dedupe)
	return errors.Wrapf(err, "enqueue %s", msg.EventType)
}

// GetUnpublishedOutbox must run inside tx so the SKIP LOCKED row locks hold
// until the batch is marked.
func (r *Repository) GetUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key, attempts
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select outbox")
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey, &rec.Attempts)
		if err != nil {
			return nil, errors.Wrap(err, "scan outbox")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	if err != nil {
		return errors.Wrapf(err, "mark outbox record %s published", id)
	}
	return domain.ExpectRows("outbox record", 1, tag.RowsAffected())
}

// RecordFailure counts a failed publish. The record stops being retried
// once maxAttempts is reached.
func (r *Repository) RecordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox SET attempts = attempts + 1,
		       status = CASE WHEN attempts + 1 >= $2 THEN 'FAILED' ELSE status END
		WHERE id = $1
	`, id, maxAttempts)
	return errors.Wrapf(err, "record outbox failure %s", id)
}
