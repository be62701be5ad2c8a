package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`
	Log struct {
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
		Level       string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
	API struct {
		Environment string            `yaml:"environment" env:"API_ENVIRONMENT"`
		BaseURLs    map[string]string `yaml:"base_urls"`
		BaseURL     string            `yaml:"-" env:"API_BASE_URL"`
		Timeout     time.Duration     `yaml:"timeout" env:"API_TIMEOUT"`
	} `yaml:"api"`
	Session struct {
		Backend       string        `yaml:"backend" env:"SESSION_BACKEND"` // memory, postgres or sqlite
		TTL           time.Duration `yaml:"ttl" env:"SESSION_TTL"`
		PurgeInterval time.Duration `yaml:"purge_interval" env:"SESSION_PURGE_INTERVAL"`
		CookieName    string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
		SecureCookie  bool          `yaml:"secure_cookie" env:"SESSION_SECURE_COOKIE"`
	} `yaml:"session"`
	Database struct {
		URL        string `yaml:"url" env:"DATABASE_URL"`
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Security struct {
		Secret string `yaml:"secret" env:"SECRET_KEY"`
	} `yaml:"security"`
	Notifier struct {
		Enabled          bool          `yaml:"enabled" env:"NOTIFIER_ENABLED"`
		TelegramBotToken string        `yaml:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
		Login            string        `yaml:"login" env:"NOTIFIER_LOGIN"`
		Password         string        `yaml:"password" env:"NOTIFIER_PASSWORD"`
		PollInterval     time.Duration `yaml:"poll_interval" env:"NOTIFIER_POLL_INTERVAL"`
	} `yaml:"notifier"`
	Audit struct {
		Brokers []string `yaml:"brokers" env:"AUDIT_KAFKA_BROKERS"`
		Topic   string   `yaml:"topic" env:"AUDIT_KAFKA_TOPIC"`
	} `yaml:"audit"`
}

var ErrUnknownEnvironment = errors.New("no base url configured for api environment")

// LoadConfig reads configuration from the specified YAML file, then applies
// .env and environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.setDefaults()

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.API.Environment == "" {
		c.API.Environment = EnvDevelopment
	}
	if c.API.BaseURLs == nil {
		c.API.BaseURLs = map[string]string{}
	}
	if _, ok := c.API.BaseURLs[EnvDevelopment]; !ok {
		c.API.BaseURLs[EnvDevelopment] = "http://127.0.0.1:5000"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.PurgeInterval == 0 {
		c.Session.PurgeInterval = 10 * time.Minute
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "tirek_session"
	}
	if c.Notifier.PollInterval == 0 {
		c.Notifier.PollInterval = 10 * time.Second
	}
}

// APIBaseURL resolves the monitoring API base URL for the active environment.
// An explicit API_BASE_URL wins over the per-environment table.
func (c *Config) APIBaseURL() (string, error) {
	if c.API.BaseURL != "" {
		return c.API.BaseURL, nil
	}
	url, ok := c.API.BaseURLs[c.API.Environment]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownEnvironment, c.API.Environment)
	}
	return url, nil
}
