// Package config loads the bot settings from the environment and the
// category catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// State backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Telegram settings
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL string `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`

	// Marketplace settings
	BaseURL           string        `envconfig:"BASE_URL" default:"https://www.amazon.es"`
	PartnerTag        string        `envconfig:"PARTNER_TAG" default:"juegosenoferta-21"`
	CategoriesFile    string        `envconfig:"CATEGORIES_FILE" default:"configs/categories.yaml"`
	MaxResultsPerPage int           `envconfig:"MAX_RESULTS_PER_PAGE" default:"20"`
	FetchMinDelay     time.Duration `envconfig:"FETCH_MIN_DELAY" default:"2s"`
	FetchMaxDelay     time.Duration `envconfig:"FETCH_MAX_DELAY" default:"4s"`
	FetchRetries      int           `envconfig:"FETCH_RETRIES" default:"3"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	// State settings
	StateBackend         string `envconfig:"STATE_BACKEND" default:"file"`
	StateFile            string `envconfig:"STATE_FILE" default:"posted_deals.json"`
	DatabaseURL          string `envconfig:"DATABASE_URL"`
	DuplicateWindowHours int    `envconfig:"DUPLICATE_WINDOW_HOURS" default:"48"`
	WeeklyCooldownHours  int    `envconfig:"WEEKLY_COOLDOWN_HOURS" default:"168"`

	// Scheduling
	Schedule string `envconfig:"SCHEDULE" default:"@every 15m"`

	// Monitoring
	EnableHTTPMonitoring bool `envconfig:"ENABLE_HTTP_MONITORING" default:"false"`
	MonitoringPort       int  `envconfig:"MONITORING_PORT" default:"8080"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads DOTENV_FILE, or .env when present. Variables already set
// in the environment win.
func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("DOTENV_FILE"))
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if strings.TrimSpace(c.CategoriesFile) == "" {
		return fmt.Errorf("CATEGORIES_FILE is required")
	}
	switch c.StateBackend {
	case BackendFile:
		if strings.TrimSpace(c.StateFile) == "" {
			return fmt.Errorf("STATE_FILE is required for the file backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be %q or %q", BackendFile, BackendPostgres)
	}
	if c.DuplicateWindowHours < 1 {
		return fmt.Errorf("DUPLICATE_WINDOW_HOURS must be >= 1")
	}
	if c.WeeklyCooldownHours < 1 {
		return fmt.Errorf("WEEKLY_COOLDOWN_HOURS must be >= 1")
	}
	if c.MaxResultsPerPage < 1 {
		return fmt.Errorf("MAX_RESULTS_PER_PAGE must be >= 1")
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("FETCH_RETRIES must be >= 1")
	}
	if c.FetchMinDelay < 0 || c.FetchMaxDelay < c.FetchMinDelay {
		return fmt.Errorf("FETCH_MIN_DELAY (%s) must be >= 0 and <= FETCH_MAX_DELAY (%s)", c.FetchMinDelay, c.FetchMaxDelay)
	}
	return nil
}

// ValidatePublishing checks the settings needed to actually post.
func (c *Config) ValidatePublishing() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	return nil
}

func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowHours) * time.Hour
}

func (c *Config) WeeklyCooldown() time.Duration {
	return time.Duration(c.WeeklyCooldownHours) * time.Hour
}
