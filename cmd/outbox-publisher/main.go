package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/crdb"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/rabbit"
	"github.com/robertarktes/reservation-finalizer/internal/config"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"github.com/robertarktes/reservation-finalizer/internal/outbox"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "tro-outbox-publisher")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	publisher := outbox.NewPublisher(repo, rabbitPub, cfg.OutboxInterval, cfg.OutboxBatch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Outbox publisher started")
		publisher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return metrics.Shutdown(context.Background())
	})
	if err := g.Wait(); err != nil {
		logger.Error("outbox publisher stopped: ", err)
	}
	logger.Info("Shutdown outbox publisher")
}
