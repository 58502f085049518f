package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "washline-dev",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.OrdersCollection != defaultOrdersCollection {
		t.Errorf("expected default orders collection, got %s", cfg.Firestore.OrdersCollection)
	}
	if cfg.Firestore.CountersCollection != defaultCountersCollection {
		t.Errorf("expected default counters collection, got %s", cfg.Firestore.CountersCollection)
	}
	if cfg.PubSub.ProjectID != "washline-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if !cfg.PubSub.Enabled {
		t.Error("expected pubsub enabled with default topic and events feature on")
	}
	if cfg.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Environment)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupBatchSize != defaultIdempotencyBatchSize {
		t.Errorf("unexpected default cleanup batch size: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                    "9090",
		"API_SERVER_READ_TIMEOUT":            "20s",
		"API_SERVER_WRITE_TIMEOUT":           "25s",
		"API_SERVER_IDLE_TIMEOUT":            "2m",
		"API_SERVER_REQUEST_TIMEOUT":         "45s",
		"API_FIRESTORE_PROJECT_ID":           "washline-prod",
		"API_FIRESTORE_EMULATOR_HOST":        "localhost:8200",
		"API_FIRESTORE_ORDERS_COLLECTION":    "orders",
		"API_PUBSUB_PROJECT_ID":              "washline-events",
		"API_PUBSUB_EVENTS_TOPIC":            "order-events",
		"API_FEATURE_EVENTS":                 "false",
		"API_FEATURE_IDEMPOTENCY":            "false",
		"API_IDEMPOTENCY_HEADER":             "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":                "48h",
		"API_IDEMPOTENCY_CLEANUP_INTERVAL":   "30m",
		"API_IDEMPOTENCY_CLEANUP_BATCH":      "500",
		"API_ENVIRONMENT":                    "Prod",
		"API_VERSION":                        "1.4.2",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Firestore.OrdersCollection != "orders" {
		t.Errorf("unexpected orders collection: %s", cfg.Firestore.OrdersCollection)
	}
	if cfg.PubSub.ProjectID != "washline-events" {
		t.Errorf("unexpected pubsub project: %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.Enabled {
		t.Error("expected pubsub disabled when events feature is off")
	}
	if cfg.Features.EnableIdempotency {
		t.Error("expected idempotency feature disabled")
	}
	if cfg.Idempotency.Header != "X-Idem-Key" {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Environment != "prod" {
		t.Errorf("expected environment lowered to prod, got %s", cfg.Environment)
	}
	if cfg.Version != "1.4.2" {
		t.Errorf("unexpected version: %s", cfg.Version)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "API_FIRESTORE_PROJECT_ID=washline-file\nexport API_SERVER_PORT=7070\n# comment\nAPI_PUBSUB_EVENTS_TOPIC=\"quoted-topic\"\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Firestore.ProjectID != "washline-file" {
		t.Errorf("unexpected project id: %s", cfg.Firestore.ProjectID)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.PubSub.EventsTopic != "quoted-topic" {
		t.Errorf("unexpected topic: %s", cfg.PubSub.EventsTopic)
	}
}

func TestLoadEnvMapOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("API_SERVER_PORT=7070\nAPI_FIRESTORE_PROJECT_ID=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile), WithEnvMap(map[string]string{
		"API_SERVER_PORT": "6060",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "from-file" {
		t.Errorf("expected dotenv fallback, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"API_IDEMPOTENCY_TTL": "-1h",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validation.Fields()
	found := map[string]bool{}
	for _, field := range fields {
		found[field] = true
	}
	if !found["Firestore.ProjectID"] {
		t.Errorf("expected Firestore.ProjectID in %v", fields)
	}
}
