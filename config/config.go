package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StateStoreType selects where pending OAuth states are kept.
type StateStoreType string

const (
	StateStoreMemory StateStoreType = "memory"
	StateStoreRedis  StateStoreType = "redis"
)

// MetaConfig holds the Meta app registration and Graph API endpoints.
type MetaConfig struct {
	AppID        string        `mapstructure:"app_id"`
	AppSecret    string        `mapstructure:"app_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	GraphBaseURL string        `mapstructure:"graph_base_url"`
	DialogURL    string        `mapstructure:"dialog_url"`
	Scopes       []string      `mapstructure:"scopes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type TokenConfig struct {
	RefreshMargin time.Duration `mapstructure:"refresh_margin"`
	// EncryptionKey is a base64 encoded 32 byte key. Empty stores credentials unsealed.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SyncConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Schedule      string        `mapstructure:"schedule"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	MediaInsights bool          `mapstructure:"media_insights"`
	// CronSecret guards the externally triggered sync endpoint. Empty disables it.
	CronSecret string `mapstructure:"cron_secret"`
}

// RateLimitConfig bounds requests per user on the sync and analytics routes.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Config holds all configuration of the service.
type Config struct {
	HTTPAddr        string          `mapstructure:"http_addr"`
	BaseURL         string          `mapstructure:"base_url"`
	LogLevel        string          `mapstructure:"log_level"`
	LogPretty       bool            `mapstructure:"log_pretty"`
	MongoURI        string          `mapstructure:"mongo_uri"`
	MongoDBName     string          `mapstructure:"mongo_db_name"`
	OtelServiceName string          `mapstructure:"otel_service_name"`
	SessionSecret   string          `mapstructure:"session_secret"`
	SessionCookie   string          `mapstructure:"session_cookie"`
	StateStore      StateStoreType  `mapstructure:"state_store"`
	StateTTL        time.Duration   `mapstructure:"state_ttl"`
	Meta            MetaConfig      `mapstructure:"meta"`
	Token           TokenConfig     `mapstructure:"token"`
	Redis           RedisConfig     `mapstructure:"redis"`
	Sync            SyncConfig      `mapstructure:"sync"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "creator_insights")
	v.SetDefault("otel_service_name", "creator-insights")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_cookie", "iap_session")
	v.SetDefault("state_store", string(StateStoreMemory))
	v.SetDefault("state_ttl", "10m")

	v.SetDefault("meta.app_id", "")
	v.SetDefault("meta.app_secret", "")
	v.SetDefault("meta.redirect_uri", "http://localhost:8080/api/auth/instagram/callback")
	v.SetDefault("meta.graph_base_url", "https://graph.facebook.com/v21.0")
	v.SetDefault("meta.dialog_url", "https://www.facebook.com/v21.0/dialog/oauth")
	v.SetDefault("meta.scopes", []string{
		"instagram_basic",
		"instagram_manage_insights",
		"pages_show_list",
		"pages_read_engagement",
		"business_management",
	})
	v.SetDefault("meta.timeout", "30s")

	v.SetDefault("token.refresh_margin", "120h")
	v.SetDefault("token.encryption_key", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.schedule", "0 */6 * * *")
	v.SetDefault("sync.run_timeout", "30m")
	v.SetDefault("sync.media_insights", true)
	v.SetDefault("sync.cron_secret", "")

	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "60s")
}

// LoadConfig reads config.yaml when present, then INSIGHTS_ prefixed
// environment variables, falling back to defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/creator-insights/")
	v.AddConfigPath("$HOME/.creator-insights")

	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// List values coming from the environment arrive as a single string.
	if len(cfg.Meta.Scopes) == 1 && strings.Contains(cfg.Meta.Scopes[0], ",") {
		cfg.Meta.Scopes = strings.Split(cfg.Meta.Scopes[0], ",")
	}

	return &cfg, nil
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	var errs []error
	if c.Meta.AppID == "" || c.Meta.AppSecret == "" {
		errs = append(errs, errors.New("meta.app_id and meta.app_secret are required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session_secret is required"))
	}
	if c.Token.RefreshMargin <= 0 {
		errs = append(errs, errors.New("token.refresh_margin must be positive"))
	}
	if c.Meta.Timeout <= 0 {
		errs = append(errs, errors.New("meta.timeout must be positive"))
	}
	if c.StateStore != StateStoreMemory && c.StateStore != StateStoreRedis {
		errs = append(errs, fmt.Errorf("unknown state_store %q", c.StateStore))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive"))
	}
	if _, err := c.Token.Key(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Key decodes the credential sealing key. It returns nil when none is configured.
func (t TokenConfig) Key() (*[32]byte, error) {
	if t.EncryptionKey == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(t.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("token.encryption_key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("token.encryption_key must decode to 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
