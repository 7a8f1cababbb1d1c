package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Payment    PaymentConfig    `yaml:"payment"`
	Google     GoogleConfig     `yaml:"google"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`

	// Timeouts in seconds: request bounds a single exchange, resource
	// bounds the full transfer including the body.
	RequestTimeout  int `yaml:"request_timeout"`
	ResourceTimeout int `yaml:"resource_timeout"`

	// InsecureSkipVerify opts a deployment into relaxed TLS trust.
	// Off by default; only self-hosted test backends need it.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	BasicAuthFallback BasicAuthConfig `yaml:"basic_auth_fallback"`
}

// BasicAuthConfig covers the pre-login gated endpoints that the backend
// still protects with a shared operator credential. Disabled unless a
// deployment explicitly turns it on.
type BasicAuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StoreConfig struct {
	// Backend selects the credential store: file, redis or failover
	// (redis primary, file fallback).
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type PaymentConfig struct {
	RazorpayKeyID string `yaml:"razorpay_key_id"`
	Currency      string `yaml:"currency"`
	MerchantName  string `yaml:"merchant_name"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

// Enabled reports whether operator notifications are configured.
func (n NotifyConfig) Enabled() bool {
	return n.TelegramToken != "" && n.ChatID != 0
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML config at configPath, expanding ${ENV} references
// after loading .env when present.
func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base_url %q is not a valid URL", c.Backend.BaseURL)
	}

	if c.Backend.BasicAuthFallback.Enabled {
		if c.Backend.BasicAuthFallback.Username == "" || c.Backend.BasicAuthFallback.Password == "" {
			return errors.New("basic_auth_fallback enabled but username/password missing")
		}
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.Path == "" {
			return errors.New("store path is required for the file backend")
		}
	case "redis":
		if c.Store.Redis.Address == "" {
			return errors.New("store redis address is required for the redis backend")
		}
	case "failover":
		if c.Store.Path == "" || c.Store.Redis.Address == "" {
			return errors.New("failover store requires both path and redis address")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "gridee"
	}

	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = 30
	}
	if c.Backend.ResourceTimeout == 0 {
		c.Backend.ResourceTimeout = 60
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Path == "" && c.Store.Backend != "redis" {
		c.Store.Path = "data/session.json"
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	if c.Payment.MerchantName == "" {
		c.Payment.MerchantName = "Gridee Parking"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
