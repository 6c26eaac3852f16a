package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LINEAGE_MAX_DEPTH", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr: %q", cfg.HTTPAddr)
	}
	if cfg.MaxLineageDepth != 64 || cfg.ResolverCacheSize != 1024 || cfg.ResolveTimeout != 30*time.Second {
		t.Fatalf("lineage defaults: depth=%d cache=%d", cfg.MaxLineageDepth, cfg.ResolverCacheSize)
	}
	if cfg.EditLockWait != 2*time.Second {
		t.Fatalf("edit lock wait: %v", cfg.EditLockWait)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LINEAGE_MAX_DEPTH", "8")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.org,https://b.example.org")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxLineageDepth != 8 {
		t.Fatalf("depth: %d", cfg.MaxLineageDepth)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.org" {
		t.Fatalf("cors: %v", cfg.CORSOrigins)
	}
	if cfg.OtelHeaders["x-api-key"] != "abc" {
		t.Fatalf("headers: %v", cfg.OtelHeaders)
	}
}

func TestLoadConfigRejectsTinyDepth(t *testing.T) {
	t.Setenv("LINEAGE_MAX_DEPTH", "1")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for depth 1")
	}
}
