package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunReturnsStartupErrorAfterOpeningStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("SWEEP_INTERVAL", "1m")

	err := run()
	if err == nil || !strings.Contains(err.Error(), "fiber server stopped") {
		t.Fatalf("expected a listen error, got %v", err)
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Fatalf("store should have been opened before the failure: %v", statErr)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	if err := run(); err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Fatalf("expected a config error, got %v", err)
	}
}
