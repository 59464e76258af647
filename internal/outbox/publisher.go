package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/crdb"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

const maxAttempts = 10

// Store is the outbox side of crdb.Repository.
type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error
	RecordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) error
}

type Sender interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	repo      Store
	rabbitPub Sender
	interval  time.Duration
	batch     int
	logger    observability.Logger
}

func NewPublisher(repo Store, rabbitPub Sender, interval time.Duration, batch int, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, interval: interval, batch: batch, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Flush(ctx); err != nil {
				p.logger.Error("outbox flush failed: ", err)
			}
		}
	}
}

// Flush relays one batch and returns how many records were published.
// Records stay locked until the batch transaction commits.
func (p *Publisher) Flush(ctx context.Context) (int, error) {
	published := 0
	err := p.repo.WithTx(ctx, func(tx pgx.Tx) error {
		published = 0
		records, err := p.repo.GetUnpublishedOutbox(ctx, tx, p.batch)
		if err != nil {
			return err
		}
		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:   rec.DedupeKey,
				ContentType: "application/json",
				Timestamp:   rec.CreatedAt,
				Type:        rec.EventType,
				Body:        rec.Payload,
			}
			if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
				observability.RabbitPublishRetries.Inc()
				p.logger.WithField("outbox_id", rec.ID).Warn("publish failed: ", err)
				if err := p.repo.RecordFailure(ctx, tx, rec.ID, maxAttempts); err != nil {
					return err
				}
				continue
			}
			now := time.Now()
			if err := p.repo.MarkPublished(ctx, tx, rec.ID, now); err != nil {
				return err
			}
			observability.OutboxLag.Set(now.Sub(rec.CreatedAt).Seconds())
			published++
		}
		return nil
	})
	return published, err
}
