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
	mongoadapter "github.com/robertarktes/reservation-finalizer/internal/adapters/mongo"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/rabbit"
	"github.com/robertarktes/reservation-finalizer/internal/commands"
	"github.com/robertarktes/reservation-finalizer/internal/config"
	"github.com/robertarktes/reservation-finalizer/internal/extension"
	"github.com/robertarktes/reservation-finalizer/internal/fees"
	"github.com/robertarktes/reservation-finalizer/internal/finalizer"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "tro-finalizer")
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
	if err := crdb.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}
	settings := crdb.NewConfiguration(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, cfg.FinalizeQueue, commands.RoutingKey, 1)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	orch := finalizer.New(finalizer.Dependencies{
		UnitOfWork:    crdb.NewRepository(pool),
		Configuration: settings,
		Fees:          fees.NewCalculator(settings),
		Hooks:         extension.NewRegistry(),
		Billing:       mongoadapter.NewBillingDocuments(mongoDB, logger),
		Logger:        logger,
	})
	handler := commands.NewHandler(mongoadapter.NewCatalogRepository(mongoDB, logger), orch, cfg.FinalizeMaxRetries, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	metrics := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("queue", cfg.FinalizeQueue).Info("Finalizer started")
		return handler.Run(ctx, deliveries)
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
		logger.Error("finalizer stopped: ", err)
	}
	logger.Info("Shutdown finalizer")
}
