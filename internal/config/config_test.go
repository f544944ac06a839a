package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test")
	t.Setenv("MONGOURI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != DriverMongo || cfg.MongoDatabase != "donationsdb" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StoreTimeout != 5*time.Second || cfg.TokenTTL != 12*time.Hour || cfg.SweepAfter != 30*time.Minute || cfg.SweepInterval != 0 {
		t.Fatalf("unexpected duration defaults %+v", cfg)
	}
	if cfg.Currency != "NGN" || cfg.ReferencePrefix != "PS_" || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.AdminEnabled() {
		t.Fatal("admin must be disabled without credentials")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/donations")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CURRENCY", "ghs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.StoreTimeout != 2*time.Second || cfg.SweepInterval != time.Minute {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORSOrigins)
	}
	if cfg.Currency != "GHS" {
		t.Fatalf("currency = %s", cfg.Currency)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "store_driver: memory\nport: \"9090\"\npaystack_secret_key: sk_file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.PaystackSecretKey != "sk_file" {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if cfg.Port != "7070" {
		t.Fatalf("environment must override the file, port = %s", cfg.Port)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreDriver:       DriverMemory,
			StoreTimeout:      time.Second,
			PaystackSecretKey: "sk",
			TokenTTL:          time.Hour,
		}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.PaystackSecretKey = "" }, "PAYSTACK_SECRET_KEY"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "unknown STORE_DRIVER"},
		{"mongo without uri", func(c *Config) { c.StoreDriver = DriverMongo }, "MONGOURI"},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = DriverPostgres }, "POSTGRES_DSN"},
		{"zero store timeout", func(c *Config) { c.StoreTimeout = 0 }, "STORE_TIMEOUT"},
		{"admin without hash", func(c *Config) { c.AdminUsername = "admin" }, "ADMIN_PASSWORD_HASH"},
		{"negative sweep", func(c *Config) { c.SweepInterval = -time.Second }, "SWEEP_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
