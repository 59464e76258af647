package main

import (
	"context"
	"crypto/rsa"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/reservation-finalizer/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/reservation-finalizer/internal/adapters/redis"
	"github.com/robertarktes/reservation-finalizer/internal/config"
	"github.com/robertarktes/reservation-finalizer/internal/extension"
	"github.com/robertarktes/reservation-finalizer/internal/fees"
	"github.com/robertarktes/reservation-finalizer/internal/finalizer"
	httphandler "github.com/robertarktes/reservation-finalizer/internal/http"
	"github.com/robertarktes/reservation-finalizer/internal/idempotency"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"github.com/robertarktes/reservation-finalizer/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "tro-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	if err := crdb.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}
	crdbRepo := crdb.NewRepository(pool)
	settings := crdb.NewConfiguration(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	mongoCatalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	billingDocs := mongoadapter.NewBillingDocuments(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)

	var jwtKey *rsa.PublicKey
	if cfg.JWTPublicKey != "" {
		if jwtKey, err = httphandler.ParsePublicKey(cfg.JWTPublicKey); err != nil {
			log.Fatalf("failed to load jwt key: %v", err)
		}
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set, operator endpoints will reject every request")
	}

	orch := finalizer.New(finalizer.Dependencies{
		UnitOfWork:    crdbRepo,
		Configuration: settings,
		Fees:          fees.NewCalculator(settings),
		Hooks:         extension.NewRegistry(),
		Billing:       billingDocs,
		Logger:        logger,
	})

	handlers := httphandler.NewHandlers(orch, crdbRepo, mongoCatalog, map[string]httphandler.Check{
		"crdb":  pool.Ping,
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": redisCache.Ping,
	}, logger)

	r := httphandler.SetupRouter(handlers, logger, rl, idemp, jwtKey)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
