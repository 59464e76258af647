package commands

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

type Finalizer interface {
	Finalize(ctx context.Context, cmd domain.FinalizeReservation) error
}

type Handler struct {
	catalog    domain.PurchaseContextCatalog
	finalizer  Finalizer
	maxRetries int
	interval   time.Duration
	logger     observability.Logger
}

func NewHandler(catalog domain.PurchaseContextCatalog, finalizer Finalizer, maxRetries int, logger observability.Logger) *Handler {
	return &Handler{
		catalog:    catalog,
		finalizer:  finalizer,
		maxRetries: maxRetries,
		interval:   100 * time.Millisecond,
		logger:     logger,
	}
}

// Run handles deliveries one at a time until ctx is done or the channel closes.
func (h *Handler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			h.Handle(ctx, d)
		}
	}
}

// Handle settles d: ack on success, dead-letter on failures a retry cannot fix.
func (h *Handler) Handle(ctx context.Context, d amqp.Delivery) {
	log := h.logger.WithField("message_id", d.MessageId)
	err := h.Process(ctx, d.Body)
	switch {
	case err == nil:
		observability.CommandsConsumed.WithLabelValues("ok").Inc()
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("ack failed: ", ackErr)
		}
	case permanent(err) || d.Redelivered:
		observability.CommandsConsumed.WithLabelValues("dead_lettered").Inc()
		log.Error("finalize command dead-lettered: ", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("nack failed: ", nackErr)
		}
	default:
		observability.CommandsConsumed.WithLabelValues("requeued").Inc()
		log.Warn("finalize command requeued: ", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("nack failed: ", nackErr)
		}
	}
}

// Process decodes body, resolves its purchase context and finalizes the
// reservation. Serialization failures are retried with exponential backoff.
func (h *Handler) Process(ctx context.Context, body []byte) error {
	msg, err := Decode(body)
	if err != nil {
		return err
	}
	pc, err := h.catalog.PurchaseContext(ctx, msg.PurchaseContextType, msg.PurchaseContextID)
	if err != nil {
		return errors.Wrapf(err, "resolve purchase context of reservation %s", msg.ReservationID)
	}
	cmd := msg.Command(pc)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(h.maxRetries)), ctx)
	return backoff.Retry(func() error {
		err := h.finalizer.Finalize(ctx, cmd)
		if err != nil && !errors.Is(err, domain.ErrSerializationFailure) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func permanent(err error) bool {
	return errors.IsAny(err,
		domain.ErrSerializationFailure,
		domain.ErrConsistencyViolation,
		domain.ErrPreconditionFailed,
		domain.ErrUnsupportedPurchaseContext,
		domain.ErrInvalidInput,
		domain.ErrNotFound,
	)
}
