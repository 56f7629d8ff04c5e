// Package config handles environment variable parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AuthMode represents the SSH authentication mode.
type AuthMode string

const (
	AuthModeAllowlist AuthMode = "allowlist"
	AuthModePublic    AuthMode = "public"
)

// StorageDriver selects where shopper buckets (cart, wishlist, last order) live.
type StorageDriver string

const (
	StorageSQLite StorageDriver = "sqlite"
	StorageRedis  StorageDriver = "redis"
	StorageMemory StorageDriver = "memory"
)

// Config holds all application configuration.
type Config struct {
	StoreName string

	// SSH server settings
	SSHAddr        string
	SSHHostKeyPath string
	SSHAuthMode    AuthMode
	AllowlistPath  string

	// Catalog Store (Supabase PostgREST)
	SupabaseURL     string
	SupabaseAnonKey string

	// Cache settings
	CacheTTL time.Duration

	// Shopper storage
	StorageDriver StorageDriver
	StoragePath   string
	RedisAddr     string

	// Checkout
	WhatsAppNumber        string
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
	CurrencySymbol        string

	// Admin
	AdminEmail       string
	AdminPassword    string
	AdminTokenSecret string
	ExportDir        string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreName:        getEnv("STORE_NAME", "Sacred Mayhem"),
		SSHAddr:          getEnv("SSH_ADDR", ":23234"),
		SSHHostKeyPath:   getEnv("SSH_HOSTKEY_PATH", "./.ssh_host_ed25519_key"),
		SSHAuthMode:      AuthMode(getEnv("SSH_AUTH_MODE", "public")),
		AllowlistPath:    getEnv("SSH_ALLOWLIST_PATH", "./allowlist_authorized_keys"),
		SupabaseURL:      strings.TrimRight(getEnv("SUPABASE_URL", "http://127.0.0.1:18080"), "/"),
		SupabaseAnonKey:  os.Getenv("SUPABASE_ANON_KEY"),
		StorageDriver:    StorageDriver(getEnv("STORAGE_DRIVER", "sqlite")),
		StoragePath:      getEnv("STORAGE_PATH", "./data/shoppers.db"),
		RedisAddr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		WhatsAppNumber:   getEnv("WHATSAPP_NUMBER", "15550100200"),
		CurrencySymbol:   getEnv("CURRENCY_SYMBOL", "$"),
		AdminEmail:       getEnv("ADMIN_EMAIL", "admin@sacredmayhem.com"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		AdminTokenSecret: os.Getenv("ADMIN_TOKEN_SECRET"),
		ExportDir:        getEnv("ADMIN_EXPORT_DIR", "./exports"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	ttlSeconds, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "60"))
	if err != nil {
		return nil, errors.New("CACHE_TTL_SECONDS must be a valid integer")
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	if cfg.FreeShippingThreshold, err = getFloat("FREE_SHIPPING_THRESHOLD", 200); err != nil {
		return nil, err
	}
	if cfg.FlatShippingFee, err = getFloat("FLAT_SHIPPING_FEE", 15); err != nil {
		return nil, err
	}
	if cfg.TaxRate, err = getFloat("TAX_RATE", 0.08); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum values and ranges.
func (c *Config) Validate() error {
	if c.SSHAuthMode != AuthModeAllowlist && c.SSHAuthMode != AuthModePublic {
		return errors.New("SSH_AUTH_MODE must be 'allowlist' or 'public'")
	}

	switch c.StorageDriver {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return errors.New("STORAGE_DRIVER must be 'sqlite', 'redis' or 'memory'")
	}

	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return errors.New("TAX_RATE must be between 0 and 1")
	}
	if c.FreeShippingThreshold < 0 || c.FlatShippingFee < 0 {
		return errors.New("shipping threshold and fee must not be negative")
	}

	if c.WhatsAppNumber == "" {
		return errors.New("WHATSAPP_NUMBER is required")
	}
	return nil
}

// AdminEnabled reports whether the admin panel can be logged into.
func (c *Config) AdminEnabled() bool {
	return c.AdminPassword != "" && c.AdminTokenSecret != ""
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}
