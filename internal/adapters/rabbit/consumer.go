package rabbit

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares a durable queue bound to routingKey on the events
// exchange. Rejected deliveries are routed to the dead-letter exchange.
func NewConsumer(conn *amqp.Connection, queue, routingKey string, prefetch int) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", Exchange)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", DeadLetterExchange)
	}
	if _, err := ch.QueueDeclare(queue+".dlq", true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare queue %s.dlq", queue)
	}
	if err := ch.QueueBind(queue+".dlq", "", DeadLetterExchange, false, nil); err != nil {
		return nil, errors.Wrapf(err, "bind queue %s.dlq", queue)
	}
	_, err = ch.QueueDeclare(queue, true, false, false, false, amqp.Table{"x-dead-letter-exchange": DeadLetterExchange})
	if err != nil {
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	if err := ch.QueueBind(queue, routingKey, Exchange, false, nil); err != nil {
		return nil, errors.Wrapf(err, "bind queue %s", queue)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, errors.Wrap(err, "set prefetch")
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

// Consume starts delivering from the queue. Cancelling ctx cancels the
// subscription; the returned channel closes once in-flight deliveries drain.
func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	tag := c.queue + "-" + uuid.NewString()
	deliveries, err := c.ch.Consume(c.queue, tag, false, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "consume %s", c.queue)
	}
	go func() {
		<-ctx.Done()
		_ = c.ch.Cancel(tag, false)
	}()
	return deliveries, nil
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
