// Package config reads service settings from the environment, an optional
// .env file and an optional YAML file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string
	CORSOrigins []string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string
	StoreTimeout  time.Duration

	PaystackSecretKey string
	PaystackPublicKey string
	PaystackBaseURL   string
	Currency          string
	ReferencePrefix   string

	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	TokenTTL          time.Duration

	SweepInterval time.Duration
	SweepAfter    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("store_driver", DriverMongo)
	v.SetDefault("mongo_database", "donationsdb")
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("paystack_base_url", "https://api.paystack.co")
	v.SetDefault("currency", "NGN")
	v.SetDefault("reference_prefix", "PS_")
	v.SetDefault("token_ttl", "12h")
	v.SetDefault("sweep_interval", "0s")
	v.SetDefault("sweep_after", "30m")
}

// Load reads .env from the working directory (if present), then CONFIG_FILE
// (if set), with environment variables taking precedence over both files.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		CORSOrigins: splitList(v.GetString("cors_origins")),

		StoreDriver:   strings.ToLower(strings.TrimSpace(v.GetString("store_driver"))),
		MongoURI:      v.GetString("mongouri"),
		MongoDatabase: v.GetString("mongo_database"),
		PostgresDSN:   v.GetString("postgres_dsn"),
		StoreTimeout:  v.GetDuration("store_timeout"),

		PaystackSecretKey: v.GetString("paystack_secret_key"),
		PaystackPublicKey: v.GetString("paystack_public_key"),
		PaystackBaseURL:   v.GetString("paystack_base_url"),
		Currency:          strings.ToUpper(v.GetString("currency")),
		ReferencePrefix:   v.GetString("reference_prefix"),

		AdminUsername:     v.GetString("admin_username"),
		AdminPasswordHash: v.GetString("admin_password_hash"),
		JWTSecret:         v.GetString("jwt_secret"),
		TokenTTL:          v.GetDuration("token_ttl"),

		SweepInterval: v.GetDuration("sweep_interval"),
		SweepAfter:    v.GetDuration("sweep_after"),
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	var errs []error
	if c.PaystackSecretKey == "" {
		errs = append(errs, errors.New("PAYSTACK_SECRET_KEY is required"))
	}
	if err := c.ValidateStore(); err != nil {
		errs = append(errs, err)
	}
	if c.AdminUsername != "" && (c.AdminPasswordHash == "" || c.JWTSecret == "") {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH and JWT_SECRET are required when ADMIN_USERNAME is set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.SweepInterval < 0 || c.SweepAfter < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL and SWEEP_AFTER must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateStore checks only the datastore settings, for commands that do not
// talk to Paystack.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGOURI environment variable not set")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN environment variable not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo, postgres or memory)", c.StoreDriver)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	return nil
}

// AdminEnabled reports whether admin login is configured. Without it every
// admin route rejects requests.
func (c *Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPasswordHash != "" && c.JWTSecret != ""
}
