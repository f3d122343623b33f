package config

import (
	"os"
	"testing"
)

// clearEnv unsets all LEARN_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"LEARN_SERVER_PORT",
		"LEARN_SERVER_HOST",
		"LEARN_DATABASE_URL",
		"LEARN_DATABASE_MAX_CONNS",
		"LEARN_DATABASE_MIN_CONNS",
		"LEARN_CACHE_URL",
		"LEARN_STORE_BACKEND",
		"LEARN_STORE_SQLITE_PATH",
		"LEARN_CATALOG_DIR",
		"LEARN_CATALOG_BASE_URL",
		"LEARN_QUIZ_PASS_THRESHOLD",
		"LEARN_LOG_LEVEL",
		"LEARN_LOG_FORMAT",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Cache.URL != "redis://localhost:6379" {
		t.Errorf("Cache.URL = %q, want redis://localhost:6379", cfg.Cache.URL)
	}
	if cfg.Catalog.Dir != "./data" {
		t.Errorf("Catalog.Dir = %q, want ./data", cfg.Catalog.Dir)
	}
	if cfg.Quiz.PassThreshold != 60 {
		t.Errorf("Quiz.PassThreshold = %v, want 60", cfg.Quiz.PassThreshold)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v; defaults should be valid", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("LEARN_SERVER_PORT", "9090")
	t.Setenv("LEARN_SERVER_HOST", "127.0.0.1")
	t.Setenv("LEARN_STORE_BACKEND", "Redis")
	t.Setenv("LEARN_CATALOG_BASE_URL", "https://cdn.example.com/lessons")
	t.Setenv("LEARN_QUIZ_PASS_THRESHOLD", "75.5")
	t.Setenv("LEARN_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9090", cfg.Addr())
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("Store.Backend = %q, want redis", cfg.Store.Backend)
	}
	if cfg.Catalog.BaseURL != "https://cdn.example.com/lessons" {
		t.Errorf("Catalog.BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Quiz.PassThreshold != 75.5 {
		t.Errorf("Quiz.PassThreshold = %v, want 75.5", cfg.Quiz.PassThreshold)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEARN_SERVER_PORT", "not-a-port")
	t.Setenv("LEARN_QUIZ_PASS_THRESHOLD", "sixty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
	if cfg.Quiz.PassThreshold != 60 {
		t.Errorf("Quiz.PassThreshold = %v, want fallback 60", cfg.Quiz.PassThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"memory", map[string]string{}, false},
		{"postgres", map[string]string{"LEARN_STORE_BACKEND": "postgres"}, false},
		{"sqlite", map[string]string{"LEARN_STORE_BACKEND": "sqlite"}, false},
		{"unknown backend", map[string]string{"LEARN_STORE_BACKEND": "etcd"}, true},
		{"zero threshold", map[string]string{"LEARN_QUIZ_PASS_THRESHOLD": "0"}, true},
		{"threshold over 100", map[string]string{"LEARN_QUIZ_PASS_THRESHOLD": "101"}, true},
		{"threshold 100", map[string]string{"LEARN_QUIZ_PASS_THRESHOLD": "100"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NoCatalogSource(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Catalog.Dir = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should return error when no catalog source is configured")
	}
}
