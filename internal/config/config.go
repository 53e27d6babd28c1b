// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	APIKey    string `yaml:"api_key"`
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
		WebhookPath   string `yaml:"webhook_path"`
		BaseURL       string `yaml:"base_url"`
	} `yaml:"stripe"`
	// Policy is strict|lenient. Strict requires a saved payment method
	// before any registration attempt; lenient only when money is due.
	Policy string `yaml:"policy"`
}

type SchedulerConfig struct {
	ReconcileInterval   time.Duration `yaml:"reconcile_interval"`
	StalePendingAfter   time.Duration `yaml:"stale_pending_after"`
	SlotExpiryInterval  time.Duration `yaml:"slot_expiry_interval"`
	SlotAbandonedAfter  time.Duration `yaml:"slot_abandoned_after"`
	ExpiryNoticeWindow  time.Duration `yaml:"expiry_notice_window"`
	ExpiryCheckInterval time.Duration `yaml:"expiry_check_interval"`
}

type NotifyConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.Policy != "strict" && cfg.Payment.Policy != "lenient" {
		return nil, fmt.Errorf("payment.policy must be strict or lenient, got %q", cfg.Payment.Policy)
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Payment.Policy == "" {
		cfg.Payment.Policy = "lenient"
	}
	if cfg.Payment.Stripe.BaseURL == "" {
		cfg.Payment.Stripe.BaseURL = "https://api.stripe.com"
	}
	if cfg.Payment.Stripe.WebhookPath == "" {
		cfg.Payment.Stripe.WebhookPath = "/webhook/stripe"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = 5 * time.Minute
	}
	if cfg.Scheduler.StalePendingAfter <= 0 {
		cfg.Scheduler.StalePendingAfter = 30 * time.Minute
	}
	if cfg.Scheduler.SlotExpiryInterval <= 0 {
		cfg.Scheduler.SlotExpiryInterval = 10 * time.Minute
	}
	if cfg.Scheduler.SlotAbandonedAfter <= 0 {
		cfg.Scheduler.SlotAbandonedAfter = time.Hour
	}
	if cfg.Scheduler.ExpiryNoticeWindow <= 0 {
		cfg.Scheduler.ExpiryNoticeWindow = 7 * 24 * time.Hour
	}
	if cfg.Scheduler.ExpiryCheckInterval <= 0 {
		cfg.Scheduler.ExpiryCheckInterval = 24 * time.Hour
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
