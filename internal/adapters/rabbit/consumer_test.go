package rabbit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/rabbit"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbit(t *testing.T) *amqp.Connection {
	t.Helper()
	ctx := context.Background()

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rabbitContainer.Terminate(ctx) })

	host, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConsumer_DeliversUntilCancelled(t *testing.T) {
	conn := startRabbit(t)
	consumer, err := rabbit.NewConsumer(conn, "finalize.test.q", "reservation.finalize", 1)
	if err != nil {
		t.Fatal(err)
	}
	defer consumer.Close()
	publisher, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatal(err)
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := publisher.Publish(ctx, "reservation.finalize", amqp.Publishing{MessageId: "m1", Body: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-deliveries:
		if d.MessageId != "m1" {
			t.Errorf("unexpected delivery %q", d.MessageId)
		}
		if err := d.Ack(false); err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery")
	}

	cancel()
	select {
	case _, ok := <-deliveries:
		if ok {
			t.Error("expected the delivery channel to close after cancellation")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("delivery channel still open after cancellation")
	}
}
