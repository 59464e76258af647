package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"MONGO_DB", "HTTP_ADDR", "OUTBOX_INTERVAL", "OUTBOX_BATCH", "FINALIZE_QUEUE", "FINALIZE_MAX_RETRIES", "IDEMPOTENCY_TTL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MongoDB != "tro" || cfg.HTTPAddr != ":8080" || cfg.FinalizeQueue != "reservation.finalize.q" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.OutboxInterval != 5*time.Second || cfg.OutboxBatch != 50 || cfg.FinalizeMaxRetries != 3 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("OUTBOX_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error")
	}
}
