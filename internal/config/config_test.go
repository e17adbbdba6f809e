package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithSnapshot(t *testing.T) {
	t.Setenv("CATALOG_SNAPSHOT", "./katas.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Storage.Backend != BackendFile {
		t.Errorf("unexpected defaults %+v %+v", cfg.Server, cfg.Storage)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("expected 7 day token ttl, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.App.Name != "wko-katas-storage" {
		t.Errorf("unexpected app name %q", cfg.App.Name)
	}
}

func TestLoadRequiresCatalogSource(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_KEY", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("CATALOG_SNAPSHOT", "")

	if _, err := Load(); err == nil {
		t.Error("expected error without drive credentials or snapshot")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CATALOG_SNAPSHOT", "./katas.json")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CATALOG_REFRESH_INTERVAL", "2m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("SERVER_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %q", cfg.Storage.Backend)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("unexpected origins %q", got)
	}
	if cfg.Catalog.RefreshInterval != 2*time.Minute {
		t.Errorf("unexpected interval %v", cfg.Catalog.RefreshInterval)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled")
	}
	if cfg.Server.Host != "" {
		t.Errorf("an empty env value still overrides, got %q", cfg.Server.Host)
	}
}

func TestInvalidEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("CATALOG_SNAPSHOT", "./katas.json")
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("CATALOG_REFRESH_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Catalog.RefreshInterval != 15*time.Minute {
		t.Errorf("expected defaults, got port %d interval %v", cfg.Server.Port, cfg.Catalog.RefreshInterval)
	}
}

func TestConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katas.yaml")
	content := `
server:
  port: 7000
catalog:
  folder_id: folder-123
  refresh_interval: 30m
drive:
  credentials_file: /etc/katas/sa.json
storage:
  backend: postgres
auth:
  admin_username: sensei
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("env should win over file, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.FolderID != "folder-123" || cfg.Catalog.RefreshInterval != 30*time.Minute {
		t.Errorf("unexpected catalog config %+v", cfg.Catalog)
	}
	if cfg.Storage.Backend != BackendPostgres || cfg.Auth.AdminUsername != "sensei" {
		t.Errorf("file values not applied: %+v %+v", cfg.Storage, cfg.Auth)
	}
	if cfg.Auth.JWTSecret != DefaultJWTSecret {
		t.Error("unset file values should keep defaults")
	}
}

func TestConfigFileErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("server: [unclosed"), 0o644)
	t.Setenv("CONFIG_FILE", bad)
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"file backend without path", func(c *Config) { c.Storage.StateFile = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres; c.Database.DSN = "" }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"drive without folder", func(c *Config) { c.Drive.CredentialsFile = "sa.json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Catalog.SnapshotPath = "./katas.json"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
