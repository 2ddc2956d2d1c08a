package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SIMILARITY_THRESHOLD", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg := Load()
	if cfg.HTTPPort != "3000" {
		t.Errorf("HTTPPort = %q, want 3000", cfg.HTTPPort)
	}
	if cfg.SimilarityThreshold != 60 {
		t.Errorf("SimilarityThreshold = %v, want 60", cfg.SimilarityThreshold)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxBodyBytes != 50*1024*1024 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("SIMILARITY_THRESHOLD", "72.5")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()
	if cfg.HTTPPort != "8088" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.SimilarityThreshold != 72.5 {
		t.Errorf("SimilarityThreshold = %v", cfg.SimilarityThreshold)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.DBMaxOpen != 10 {
		t.Errorf("DBMaxOpen = %d, want fallback 10", cfg.DBMaxOpen)
	}
}

func TestProduction(t *testing.T) {
	for env, want := range map[string]bool{"production": true, "prod": true, "development": false, "": false} {
		if got := (App{Env: env}).Production(); got != want {
			t.Errorf("Production(%q) = %v, want %v", env, got, want)
		}
	}
}
