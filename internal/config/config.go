package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	App        AppConfig        `yaml:"app"`
	Automation AutomationConfig `yaml:"automation"`
	Relay      RelayConfig      `yaml:"relay"`
	Graph      GraphConfig      `yaml:"graph"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// TrustedProxies may set X-Forwarded-For. Empty trusts no one.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type LogConfig struct {
	Level         string `yaml:"level"`
	RetentionDays int    `yaml:"retention_days"` // activity log retention, 0 keeps everything
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// AuthConfig describes the hosted auth service whose tokens we accept.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

type AppConfig struct {
	BaseURL     string   `yaml:"base_url"` // public base used to build webhook_receive
	CORSOrigins []string `yaml:"cors_origins"`
}

// AutomationConfig points at the external automation service that
// receives relayed events, replies and file operations.
type AutomationConfig struct {
	WebhookURL     string `yaml:"webhook_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RelayConfig struct {
	IngestComments bool   `yaml:"ingest_comments"`
	DeliveryMode   string `yaml:"delivery_mode"` // forward-then-ack, ack-then-forward
}

type GraphConfig struct {
	InstagramBaseURL string `yaml:"instagram_base_url"`
	FacebookBaseURL  string `yaml:"facebook_base_url"`
	CacheTTLMinutes  int    `yaml:"cache_ttl_minutes"`
	CacheMaxEntries  int    `yaml:"cache_max_entries"`
}

type RateLimitConfig struct {
	WebhookRPS   float64 `yaml:"webhook_rps"`
	WebhookBurst int     `yaml:"webhook_burst"`
}

var GlobalConfig *Config

// Load reads .env (if any), then the YAML file, then env overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	cfg.App.BaseURL = strings.TrimSuffix(cfg.App.BaseURL, "/")
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "aijarvis.db",
		},
		App: AppConfig{
			BaseURL:     "http://localhost:8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Automation: AutomationConfig{
			TimeoutSeconds: 30,
		},
		Relay: RelayConfig{
			IngestComments: true,
			DeliveryMode:   "forward-then-ack",
		},
		Graph: GraphConfig{
			InstagramBaseURL: "https://graph.instagram.com",
			FacebookBaseURL:  "https://graph.facebook.com",
			CacheTTLMinutes:  30,
			CacheMaxEntries:  1000,
		},
		RateLimit: RateLimitConfig{
			WebhookRPS:   20,
			WebhookBurst: 40,
		},
	}
}

func (c *Config) overrideFromEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setList := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*dst = items
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SERVER_HOST", &c.Server.Host)
	setString("SERVER_PORT", &c.Server.Port)
	setString("SERVER_MODE", &c.Server.Mode)
	setList("SERVER_TRUSTED_PROXIES", &c.Server.TrustedProxies)
	setString("LOG_LEVEL", &c.Log.Level)
	setInt("LOG_RETENTION_DAYS", &c.Log.RetentionDays)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_DSN", &c.Database.DSN)
	setString("AUTH_JWT_SECRET", &c.Auth.JWTSecret)
	setString("AUTH_JWT_ISSUER", &c.Auth.Issuer)
	setString("AUTH_JWT_AUDIENCE", &c.Auth.Audience)
	setString("API_BASE_URL", &c.App.BaseURL)
	setList("CORS_ORIGINS", &c.App.CORSOrigins)
	setString("AUTOMATION_WEBHOOK_URL", &c.Automation.WebhookURL)
	setInt("AUTOMATION_TIMEOUT_SECONDS", &c.Automation.TimeoutSeconds)
	setString("RELAY_DELIVERY_MODE", &c.Relay.DeliveryMode)
	setString("GRAPH_INSTAGRAM_BASE_URL", &c.Graph.InstagramBaseURL)
	setString("GRAPH_FACEBOOK_BASE_URL", &c.Graph.FacebookBaseURL)
	setInt("GRAPH_CACHE_TTL_MINUTES", &c.Graph.CacheTTLMinutes)
	setInt("GRAPH_CACHE_MAX_ENTRIES", &c.Graph.CacheMaxEntries)

	if v := os.Getenv("RELAY_INGEST_COMMENTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Relay.IngestComments = b
		}
	}
}

// WebhookReceiveURL is the public inbound URL for a monitor id.
func (c *Config) WebhookReceiveURL(monitorID uint) string {
	return c.App.BaseURL + "/api/webhook/" + strconv.FormatUint(uint64(monitorID), 10)
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
