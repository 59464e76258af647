package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN            string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RabbitURL          string
	JWTPublicKey       string
	OTLPEndpoint       string
	HTTPAddr           string
	MetricsAddr        string
	OutboxInterval     time.Duration
	OutboxBatch        int
	FinalizeQueue      string
	FinalizeMaxRetries int
	IdempotencyTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CRDBDSN:       os.Getenv("CRDB_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       getenv("MONGO_DB", "tro"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RabbitURL:     os.Getenv("RABBIT_URL"),
		JWTPublicKey:  os.Getenv("JWT_PUBLIC_KEY"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
		FinalizeQueue: getenv("FINALIZE_QUEUE", "reservation.finalize.q"),
	}

	var err error
	if cfg.OutboxInterval, err = duration("OUTBOX_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = duration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OutboxBatch, err = integer("OUTBOX_BATCH", 50); err != nil {
		return nil, err
	}
	if cfg.FinalizeMaxRetries, err = integer("FINALIZE_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return d, nil
}

func integer(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}
